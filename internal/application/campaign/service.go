package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabify/collabify/internal/domain/apperror"
	domain "github.com/collabify/collabify/internal/domain/campaign"
	"github.com/collabify/collabify/internal/domain/creator"
	"github.com/collabify/collabify/internal/domain/statemachine"
	"github.com/collabify/collabify/internal/domain/subscription"
)

// FeatureSource resolves the plan features of a brand.
type FeatureSource interface {
	FeaturesForBrand(ctx context.Context, brandID uuid.UUID) (subscription.Features, error)
}

// Service handles campaign lifecycle and discovery.
type Service struct {
	repo        domain.Repository
	creatorRepo creator.Repository
	features    FeatureSource
	logger      zerolog.Logger
}

// NewService creates a campaign service.
func NewService(repo domain.Repository, creatorRepo creator.Repository, features FeatureSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		creatorRepo: creatorRepo,
		features:    features,
		logger:      logger.With().Str("service", "campaign").Logger(),
	}
}

// CreateInput defines campaign creation input.
type CreateInput struct {
	BrandID        uuid.UUID
	Title          string
	Description    string
	BudgetMinCents *int64
	BudgetMaxCents *int64
	Deadline       *time.Time
	Targeting      *domain.Targeting
}

// UpdateInput defines campaign update input. Only DRAFT campaigns may be
// edited.
type UpdateInput struct {
	Title          *string
	Description    *string
	BudgetMinCents *int64
	BudgetMaxCents *int64
	Deadline       *time.Time
	Targeting      *domain.Targeting
}

// Create creates a DRAFT campaign, enforcing the brand's campaign limit.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Campaign, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.InvalidInput("title is required")
	}
	if input.BudgetMinCents != nil && input.BudgetMaxCents != nil && *input.BudgetMinCents > *input.BudgetMaxCents {
		return nil, apperror.InvalidInput("budget minimum exceeds maximum")
	}
	if input.Targeting != nil && input.Targeting.Expression != nil {
		if err := ValidateTargetingExpression(*input.Targeting.Expression); err != nil {
			return nil, apperror.InvalidInput("invalid targeting expression: %s", err.Error())
		}
	}

	features, err := s.features.FeaturesForBrand(ctx, input.BrandID)
	if err != nil {
		return nil, err
	}
	if features.MaxCampaigns >= 0 {
		count, err := s.repo.Count(ctx, domain.Filter{BrandID: &input.BrandID})
		if err != nil {
			return nil, err
		}
		if count >= features.MaxCampaigns {
			return nil, apperror.Forbidden("campaign limit reached for current plan")
		}
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		CampaignID:     uuid.New(),
		BrandID:        input.BrandID,
		Title:          title,
		Slug:           slugWithSuffix(title),
		Description:    input.Description,
		Status:         domain.StatusDraft,
		BudgetMinCents: input.BudgetMinCents,
		BudgetMaxCents: input.BudgetMaxCents,
		Deadline:       input.Deadline,
		Targeting:      input.Targeting,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Str("campaign_id", c.CampaignID.String()).Str("brand_id", c.BrandID.String()).Msg("campaign created")
	return c, nil
}

// Update edits a DRAFT campaign. Campaigns past DRAFT are immutable apart
// from status.
func (s *Service) Update(ctx context.Context, campaignID, brandID uuid.UUID, input UpdateInput) (*domain.Campaign, error) {
	c, err := s.getOwned(ctx, campaignID, brandID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.StatusDraft {
		return nil, apperror.InvalidState("only draft campaigns can be edited")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperror.InvalidInput("title is required")
		}
		c.Title = title
		c.Slug = slugWithSuffix(title)
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.BudgetMinCents != nil {
		c.BudgetMinCents = input.BudgetMinCents
	}
	if input.BudgetMaxCents != nil {
		c.BudgetMaxCents = input.BudgetMaxCents
	}
	if c.BudgetMinCents != nil && c.BudgetMaxCents != nil && *c.BudgetMinCents > *c.BudgetMaxCents {
		return nil, apperror.InvalidInput("budget minimum exceeds maximum")
	}
	if input.Deadline != nil {
		c.Deadline = input.Deadline
	}
	if input.Targeting != nil {
		if input.Targeting.Expression != nil {
			if err := ValidateTargetingExpression(*input.Targeting.Expression); err != nil {
				return nil, apperror.InvalidInput("invalid targeting expression: %s", err.Error())
			}
		}
		c.Targeting = input.Targeting
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStatus transitions the campaign lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, campaignID, brandID uuid.UUID, target domain.Status) (*domain.Campaign, error) {
	c, err := s.getOwned(ctx, campaignID, brandID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.Validate(statemachine.MachineCampaign, string(c.Status), string(target)); err != nil {
		return nil, apperror.InvalidState("%s", err.Error())
	}
	if err := s.repo.UpdateStatus(ctx, campaignID, target); err != nil {
		return nil, err
	}
	c.Status = target

	s.logger.Info().Str("campaign_id", campaignID.String()).Str("status", string(target)).Msg("campaign status changed")
	return c, nil
}

// Get returns a campaign by id.
func (s *Service) Get(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	c, err := s.repo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}
	return c, nil
}

// ListResult is a paginated campaign listing.
type ListResult struct {
	Campaigns []*domain.Campaign
	Total     int
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, filter domain.Filter, limit, offset int) (*ListResult, error) {
	campaigns, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Campaigns: campaigns, Total: total}, nil
}

// Discover returns LIVE campaigns whose targeting matches the creator's
// profile. Campaigns with no targeting match everyone.
func (s *Service) Discover(ctx context.Context, profile *creator.Profile, limit, offset int) ([]*domain.Campaign, error) {
	live := domain.StatusLive
	campaigns, err := s.repo.List(ctx, domain.Filter{Status: &live}, limit, offset)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		ok, err := MatchesTargeting(c.Targeting, profile)
		if err != nil {
			// A broken expression hides the campaign rather than failing
			// every creator's feed.
			s.logger.Warn().Err(err).Str("campaign_id", c.CampaignID.String()).Msg("targeting evaluation failed")
			continue
		}
		if ok {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// DiscoverForUser resolves the creator profile of a user and runs Discover.
func (s *Service) DiscoverForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Campaign, error) {
	profile, err := s.creatorRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("creator profile not found")
	}
	return s.Discover(ctx, profile, limit, offset)
}

func (s *Service) getOwned(ctx context.Context, campaignID, brandID uuid.UUID) (*domain.Campaign, error) {
	c, err := s.repo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}
	if c.BrandID != brandID {
		return nil, apperror.Forbidden("campaign belongs to another brand")
	}
	return c, nil
}

func slugWithSuffix(title string) string {
	slug := slugify(title)
	// A short random suffix keeps slugs unique without a retry loop on the
	// unique index.
	suffix := uuid.New().String()[:8]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
