package engagement

import (
	"context"

	"github.com/google/uuid"

	"github.com/collabify/collabify/internal/domain/contract"
)

// ApplicationFilter controls application listing.
type ApplicationFilter struct {
	CampaignID *uuid.UUID
	CreatorID  *uuid.UUID
	Status     *ApplicationStatus
}

// ErrDuplicate is returned by repositories when a storage uniqueness
// constraint rejects a write (duplicate application, second pending offer).
// The constraint, not the service pre-check, is the real concurrency guard.
var ErrDuplicate = duplicateError{}

type duplicateError struct{}

func (duplicateError) Error() string { return "duplicate row violates uniqueness constraint" }

// ErrStale is returned when a guarded status write matches no row: the row
// left the expected source status between the caller's read and the write.
// The enclosing transaction rolls back; nothing is committed.
var ErrStale = staleError{}

type staleError struct{}

func (staleError) Error() string { return "row is no longer in the expected status" }

// Repository defines persistence for applications and offers. Methods that
// mutate more than one row run as a single transaction; partial completion is
// never observable.
type Repository interface {
	CreateApplication(ctx context.Context, a *Application) error
	GetApplicationByID(ctx context.Context, applicationID uuid.UUID) (*Application, error)
	GetApplicationByCampaignAndCreator(ctx context.Context, campaignID, creatorID uuid.UUID) (*Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter, limit, offset int) ([]*Application, error)
	CountApplications(ctx context.Context, filter ApplicationFilter) (int, error)

	// UpdateApplicationStatus moves the application from one status to
	// another. ErrStale when the application is not in from anymore.
	UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, from, to ApplicationStatus) error

	// WithdrawApplication expires the pending offer, if any, and marks the
	// application WITHDRAWN in one transaction. ErrStale when the application
	// left from.
	WithdrawApplication(ctx context.Context, applicationID uuid.UUID, from ApplicationStatus, pendingOfferID *uuid.UUID) error

	GetOfferByID(ctx context.Context, offerID uuid.UUID) (*Offer, error)
	GetPendingOffer(ctx context.Context, applicationID uuid.UUID) (*Offer, error)
	ListOffers(ctx context.Context, applicationID uuid.UUID) ([]*Offer, error)

	// UpdateOfferStatus moves the offer from one status to another. ErrStale
	// when the offer is not in from anymore.
	UpdateOfferStatus(ctx context.Context, offerID uuid.UUID, from, to OfferStatus) error

	// CreateOffer inserts the offer and flips the application status in one
	// transaction. ErrStale when the application left fromApp.
	CreateOffer(ctx context.Context, o *Offer, fromApp, toApp ApplicationStatus) error

	// AcceptOffer marks the offer accepted, the application accepted, and
	// creates the contract snapshot in one transaction. ErrStale when the
	// offer is no longer PENDING.
	AcceptOffer(ctx context.Context, offerID, applicationID uuid.UUID, c *contract.Contract) error

	// RejectOffer marks the offer rejected and the application rejected in one
	// transaction. ErrStale when the offer is no longer PENDING.
	RejectOffer(ctx context.Context, offerID, applicationID uuid.UUID) error

	// CounterOffer terminates the original offer, flips the application to
	// COUNTER_OFFERED, and inserts the counter in one transaction. ErrStale
	// when the original offer is no longer PENDING.
	CounterOffer(ctx context.Context, originalOfferID uuid.UUID, counter *Offer) error
}
