package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/subscription"
)

// SubscriptionRepository implements subscription.Repository.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func (r *SubscriptionRepository) GetByBrand(ctx context.Context, brandID uuid.UUID) (*subscription.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, brand_id, tier, is_active, created_at, updated_at
		FROM subscriptions WHERE brand_id=$1
	`, brandID)
	var s subscription.Subscription
	if err := row.Scan(&s.ID, &s.BrandID, &s.Tier, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, s *subscription.Subscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscriptions (brand_id, tier, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (brand_id) DO UPDATE SET tier=EXCLUDED.tier, is_active=EXCLUDED.is_active, updated_at=NOW()
	`, s.BrandID, s.Tier, s.IsActive, s.CreatedAt, s.UpdatedAt)
	return err
}
