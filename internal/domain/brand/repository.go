package brand

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for brands and brand members.
type Repository interface {
	Create(ctx context.Context, b *Brand) error
	Update(ctx context.Context, b *Brand) error
	GetByID(ctx context.Context, brandID uuid.UUID) (*Brand, error)
	GetBySlug(ctx context.Context, slug string) (*Brand, error)

	AddMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, brandID, userID uuid.UUID) (*Member, error)
	ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]*Member, error)
	ListMembers(ctx context.Context, brandID uuid.UUID) ([]*Member, error)
	CountActiveMembers(ctx context.Context, brandID uuid.UUID) (int, error)
	SetMemberActive(ctx context.Context, brandID, userID uuid.UUID, active bool) error
}
