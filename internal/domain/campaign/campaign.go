package campaign

import (
	"time"

	"github.com/google/uuid"
)

// Status represents campaign lifecycle status.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusLive   Status = "LIVE"
	StatusPaused Status = "PAUSED"
	StatusClosed Status = "CLOSED"
)

// Campaign represents a brand campaign. Campaigns are never hard-deleted; the
// lifecycle ends at CLOSED.
type Campaign struct {
	ID             int64      `json:"id"`
	CampaignID     uuid.UUID  `json:"campaignId"`
	BrandID        uuid.UUID  `json:"brandId"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	BudgetMinCents *int64     `json:"budgetMinCents,omitempty"`
	BudgetMaxCents *int64     `json:"budgetMaxCents,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Targeting      *Targeting `json:"targeting,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Targeting narrows which creators a campaign is aimed at. Expression is a
// boolean rule evaluated against creator profile attributes, e.g.
// "followers >= 10000 && verified == true".
type Targeting struct {
	Platforms    []string `json:"platforms"`
	MinFollowers *int64   `json:"minFollowers,omitempty"`
	Expression   *string  `json:"expression,omitempty"`
}

func (c *Campaign) IsLive() bool {
	return c.Status == StatusLive
}
