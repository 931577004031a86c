package engagement

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus represents application lifecycle status.
type ApplicationStatus string

const (
	ApplicationPending        ApplicationStatus = "PENDING"
	ApplicationShortlisted    ApplicationStatus = "SHORTLISTED"
	ApplicationOffered        ApplicationStatus = "OFFERED"
	ApplicationCounterOffered ApplicationStatus = "COUNTER_OFFERED"
	ApplicationAccepted       ApplicationStatus = "ACCEPTED"
	ApplicationRejected       ApplicationStatus = "REJECTED"
	ApplicationWithdrawn      ApplicationStatus = "WITHDRAWN"
)

// OfferStatus represents offer lifecycle status.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferRejected  OfferStatus = "REJECTED"
	OfferExpired   OfferStatus = "EXPIRED"
	OfferCountered OfferStatus = "COUNTERED"
)

// Application links one creator to one campaign. At most one application per
// (campaign, creator); the storage constraint is the authoritative guard.
type Application struct {
	ID            int64             `json:"id"`
	ApplicationID uuid.UUID         `json:"applicationId"`
	CampaignID    uuid.UUID         `json:"campaignId"`
	CreatorID     uuid.UUID         `json:"creatorId"`
	Status        ApplicationStatus `json:"status"`
	CoverLetter   string            `json:"coverLetter"`
	PriceInCents  int64             `json:"priceInCents"`
	EstimatedDays int               `json:"estimatedDays"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Offer is a priced proposal on an application. A counter creates a new offer
// row; history is preserved. At most one PENDING offer per application.
type Offer struct {
	ID            int64       `json:"id"`
	OfferID       uuid.UUID   `json:"offerId"`
	ApplicationID uuid.UUID   `json:"applicationId"`
	FromBrand     bool        `json:"fromBrand"`
	Status        OfferStatus `json:"status"`
	PriceInCents  int64       `json:"priceInCents"`
	Message       *string     `json:"message,omitempty"`
	Deliverables  []string    `json:"deliverables"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
	ExpiresAt     *time.Time  `json:"expiresAt,omitempty"`
	RespondedAt   *time.Time  `json:"respondedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// IsExpired reports whether the offer's response window has lapsed. Offers
// with no expiry never lapse.
func (o *Offer) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}
