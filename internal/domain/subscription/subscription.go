package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tier represents a subscription plan tier.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// Feature names a gated capability.
type Feature string

const (
	FeatureCanMessage           Feature = "canMessage"
	FeatureCanViewFullProposals Feature = "canViewFullProposals"
	FeatureCanShortlist         Feature = "canShortlist"
	FeatureCanContract          Feature = "canContract"
)

// Features is the capability set of a plan tier. Limits of -1 are unlimited.
type Features struct {
	MaxCampaigns         int  `json:"maxCampaigns"`
	CanMessage           bool `json:"canMessage"`
	CanViewFullProposals bool `json:"canViewFullProposals"`
	CanShortlist         bool `json:"canShortlist"`
	CanContract          bool `json:"canContract"`
	MaxTeamMembers       int  `json:"maxTeamMembers"`
}

// PlanFeatures is the authoritative tier configuration. Looked up at call
// time; the orchestrator never hardcodes tiers.
var PlanFeatures = map[Tier]Features{
	TierFree: {
		MaxCampaigns:   3,
		MaxTeamMembers: 1,
	},
	TierPro: {
		MaxCampaigns:         50,
		CanMessage:           true,
		CanViewFullProposals: true,
		CanShortlist:         true,
		CanContract:          true,
		MaxTeamMembers:       10,
	},
	TierEnterprise: {
		MaxCampaigns:         -1,
		CanMessage:           true,
		CanViewFullProposals: true,
		CanShortlist:         true,
		CanContract:          true,
		MaxTeamMembers:       -1,
	},
}

// Has reports whether the feature is enabled in this set.
func (f Features) Has(feature Feature) bool {
	switch feature {
	case FeatureCanMessage:
		return f.CanMessage
	case FeatureCanViewFullProposals:
		return f.CanViewFullProposals
	case FeatureCanShortlist:
		return f.CanShortlist
	case FeatureCanContract:
		return f.CanContract
	default:
		return false
	}
}

// Subscription links a brand to a plan tier.
type Subscription struct {
	ID        int64     `json:"id"`
	BrandID   uuid.UUID `json:"brandId"`
	Tier      Tier      `json:"tier"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository defines persistence for subscriptions.
type Repository interface {
	GetByBrand(ctx context.Context, brandID uuid.UUID) (*Subscription, error)
	Upsert(ctx context.Context, s *Subscription) error
}
