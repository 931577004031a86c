package creator

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus represents profile verification state.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Profile represents a creator profile. One per CREATOR user.
type Profile struct {
	ID                 int64              `json:"id"`
	CreatorID          uuid.UUID          `json:"creatorId"`
	UserID             uuid.UUID          `json:"userId"`
	DisplayName        string             `json:"displayName"`
	Slug               string             `json:"slug"`
	Bio                *string            `json:"bio,omitempty"`
	Location           *string            `json:"location,omitempty"`
	Categories         []string           `json:"categories"`
	Platforms          []string           `json:"platforms"`
	TotalFollowers     int64              `json:"totalFollowers"`
	StartingPriceCents *int64             `json:"startingPriceCents,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	IsAvailable        bool               `json:"isAvailable"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// TargetingParams flattens the profile attributes a campaign targeting
// expression can reference.
func (p *Profile) TargetingParams() map[string]interface{} {
	categories := make([]interface{}, len(p.Categories))
	for i, c := range p.Categories {
		categories[i] = c
	}
	platforms := make([]interface{}, len(p.Platforms))
	for i, pl := range p.Platforms {
		platforms[i] = pl
	}
	params := map[string]interface{}{
		"followers":   float64(p.TotalFollowers),
		"categories":  categories,
		"platforms":   platforms,
		"isAvailable": p.IsAvailable,
		"verified":    p.VerificationStatus == VerificationVerified,
	}
	if p.Location != nil {
		params["location"] = *p.Location
	}
	if p.StartingPriceCents != nil {
		params["startingPrice"] = float64(*p.StartingPriceCents)
	}
	return params
}
