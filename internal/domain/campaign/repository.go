package campaign

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls campaign listing.
type Filter struct {
	BrandID *uuid.UUID
	Status  *Status
}

// Repository defines persistence for campaigns.
type Repository interface {
	Create(ctx context.Context, c *Campaign) error
	Update(ctx context.Context, c *Campaign) error
	UpdateStatus(ctx context.Context, campaignID uuid.UUID, status Status) error
	GetByID(ctx context.Context, campaignID uuid.UUID) (*Campaign, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Campaign, error)
	Count(ctx context.Context, filter Filter) (int, error)
}
