package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabify/collabify/internal/domain/apperror"
	domain "github.com/collabify/collabify/internal/domain/subscription"
)

// Service resolves plan features and manages brand subscriptions.
type Service struct {
	repo   domain.Repository
	logger zerolog.Logger
}

// NewService creates a subscription service.
func NewService(repo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "subscription").Logger(),
	}
}

// FeaturesForBrand returns the feature set of the brand's plan. Brands with
// no subscription row or an inactive subscription fall back to FREE.
func (s *Service) FeaturesForBrand(ctx context.Context, brandID uuid.UUID) (domain.Features, error) {
	sub, err := s.repo.GetByBrand(ctx, brandID)
	if err != nil {
		return domain.Features{}, err
	}
	tier := domain.TierFree
	if sub != nil && sub.IsActive {
		tier = sub.Tier
	}
	features, ok := domain.PlanFeatures[tier]
	if !ok {
		features = domain.PlanFeatures[domain.TierFree]
	}
	return features, nil
}

// Get returns the brand's subscription, defaulting to an implicit FREE plan.
func (s *Service) Get(ctx context.Context, brandID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.repo.GetByBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &domain.Subscription{BrandID: brandID, Tier: domain.TierFree, IsActive: true}, nil
	}
	return sub, nil
}

// SetTier changes the brand's plan tier.
func (s *Service) SetTier(ctx context.Context, brandID uuid.UUID, tier domain.Tier) (*domain.Subscription, error) {
	if _, ok := domain.PlanFeatures[tier]; !ok {
		return nil, apperror.InvalidInput("unknown plan tier: %s", tier)
	}
	now := time.Now().UTC()
	sub := &domain.Subscription{
		BrandID:   brandID,
		Tier:      tier,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().Str("brand_id", brandID.String()).Str("tier", string(tier)).Msg("subscription tier changed")
	return sub, nil
}
