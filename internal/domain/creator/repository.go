package creator

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for creator profiles.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, creatorID uuid.UUID) (*Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetBySlug(ctx context.Context, slug string) (*Profile, error)
}
