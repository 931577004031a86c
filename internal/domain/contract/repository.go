package contract

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls contract listing.
type Filter struct {
	BrandID   *uuid.UUID
	CreatorID *uuid.UUID
	Status    *Status
}

// ErrDuplicate is returned when a storage uniqueness constraint rejects a
// write (two submissions racing to the same version).
var ErrDuplicate = duplicateError{}

type duplicateError struct{}

func (duplicateError) Error() string { return "duplicate row violates uniqueness constraint" }

// Repository defines persistence for contracts, deliverables, submissions and
// reviews. Multi-row methods are transactional.
type Repository interface {
	GetByID(ctx context.Context, contractID uuid.UUID) (*Contract, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Contract, error)
	Count(ctx context.Context, filter Filter) (int, error)
	UpdateStatus(ctx context.Context, c *Contract) error

	GetDeliverableByID(ctx context.Context, deliverableID uuid.UUID) (*Deliverable, error)
	ListDeliverables(ctx context.Context, contractID uuid.UUID) ([]*Deliverable, error)

	ListSubmissions(ctx context.Context, deliverableID uuid.UUID) ([]*Submission, error)
	ListReviews(ctx context.Context, deliverableID uuid.UUID) ([]*Review, error)

	// SubmitDeliverable inserts the submission, marks the deliverable
	// SUBMITTED, and moves the contract to IN_REVIEW in one transaction. The
	// next version is assigned inside the transaction and written back to
	// sub.Version; a racing submission surfaces as ErrDuplicate.
	SubmitDeliverable(ctx context.Context, sub *Submission, contractID uuid.UUID) error

	// ReviewDeliverable records the review and the deliverable's new status in
	// one transaction. On approval it re-checks every deliverable under the
	// contract inside the same transaction and, when all are APPROVED, marks
	// the contract COMPLETED with completedAt stamped. Returns whether the
	// contract completed.
	ReviewDeliverable(ctx context.Context, rev *Review, newStatus DeliverableStatus, contractID uuid.UUID) (completed bool, err error)
}
