package contract

import (
	"time"

	"github.com/google/uuid"
)

// Status represents contract lifecycle status.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusDelivering Status = "DELIVERING"
	StatusInReview   Status = "IN_REVIEW"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusDisputed   Status = "DISPUTED"
)

// DeliverableStatus represents the review state of one deliverable item.
type DeliverableStatus string

const (
	DeliverablePending          DeliverableStatus = "PENDING"
	DeliverableSubmitted        DeliverableStatus = "SUBMITTED"
	DeliverableChangesRequested DeliverableStatus = "CHANGES_REQUESTED"
	DeliverableApproved         DeliverableStatus = "APPROVED"
	DeliverableRejected         DeliverableStatus = "REJECTED"
)

// Contract is created exactly once when an offer is accepted. Price,
// deliverables and deadline are copied from the offer at creation time and
// never re-read from it.
type Contract struct {
	ID             int64      `json:"id"`
	ContractID     uuid.UUID  `json:"contractId"`
	ApplicationID  uuid.UUID  `json:"applicationId"`
	CampaignID     uuid.UUID  `json:"campaignId"`
	BrandID        uuid.UUID  `json:"brandId"`
	CreatorID      uuid.UUID  `json:"creatorId"`
	Status         Status     `json:"status"`
	PriceInCents   int64      `json:"priceInCents"`
	CommissionRate float64    `json:"commissionRate"`
	Deliverables   []string   `json:"deliverables"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Deliverable is one required item under a contract.
type Deliverable struct {
	ID            int64             `json:"id"`
	DeliverableID uuid.UUID         `json:"deliverableId"`
	ContractID    uuid.UUID         `json:"contractId"`
	CreatorID     uuid.UUID         `json:"creatorId"`
	Title         string            `json:"title"`
	Status        DeliverableStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Submission is one versioned deliverable upload. Versions are monotonically
// increasing per deliverable starting at 1; rows are append-only.
type Submission struct {
	ID            int64     `json:"id"`
	SubmissionID  uuid.UUID `json:"submissionId"`
	DeliverableID uuid.UUID `json:"deliverableId"`
	Version       int       `json:"version"`
	FileURL       *string   `json:"fileUrl,omitempty"`
	LinkURL       *string   `json:"linkUrl,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Review is one append-only approval/rejection decision on a deliverable.
type Review struct {
	ID            int64     `json:"id"`
	ReviewID      uuid.UUID `json:"reviewId"`
	DeliverableID uuid.UUID `json:"deliverableId"`
	ReviewedBy    uuid.UUID `json:"reviewedBy"`
	Approved      bool      `json:"approved"`
	Feedback      *string   `json:"feedback,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
