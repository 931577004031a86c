package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/collabify/collabify/internal/application/audit"
	appNotification "github.com/collabify/collabify/internal/application/notification"
	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/audit"
	"github.com/collabify/collabify/internal/domain/brand"
	"github.com/collabify/collabify/internal/domain/campaign"
	"github.com/collabify/collabify/internal/domain/contract"
	"github.com/collabify/collabify/internal/domain/creator"
	domain "github.com/collabify/collabify/internal/domain/engagement"
	"github.com/collabify/collabify/internal/domain/notification"
	"github.com/collabify/collabify/internal/domain/statemachine"
	"github.com/collabify/collabify/internal/domain/subscription"
)

// DefaultOfferTTL is how long an offer stays open for a response before it
// lapses.
const DefaultOfferTTL = 7 * 24 * time.Hour

// FeatureSource resolves the plan features of a brand.
type FeatureSource interface {
	FeaturesForBrand(ctx context.Context, brandID uuid.UUID) (subscription.Features, error)
}

// Service drives applications, offers and the contract snapshot created when
// an offer is accepted.
type Service struct {
	repo           domain.Repository
	campaignRepo   campaign.Repository
	brandRepo      brand.Repository
	creatorRepo    creator.Repository
	features       FeatureSource
	notifier       *appNotification.Service
	auditSvc       *appAudit.Service
	commissionRate float64
	offerTTL       time.Duration
	logger         zerolog.Logger
}

// NewService creates an engagement service.
func NewService(
	repo domain.Repository,
	campaignRepo campaign.Repository,
	brandRepo brand.Repository,
	creatorRepo creator.Repository,
	features FeatureSource,
	notifier *appNotification.Service,
	auditSvc *appAudit.Service,
	commissionRate float64,
	offerTTL time.Duration,
	logger zerolog.Logger,
) *Service {
	if offerTTL <= 0 {
		offerTTL = DefaultOfferTTL
	}
	return &Service{
		repo:           repo,
		campaignRepo:   campaignRepo,
		brandRepo:      brandRepo,
		creatorRepo:    creatorRepo,
		features:       features,
		notifier:       notifier,
		auditSvc:       auditSvc,
		commissionRate: commissionRate,
		offerTTL:       offerTTL,
		logger:         logger.With().Str("service", "engagement").Logger(),
	}
}

// CreatorIDForUser resolves a user account to its creator profile id.
func (s *Service) CreatorIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.creatorRepo.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if p == nil {
		return uuid.Nil, apperror.NotFound("creator profile not found")
	}
	return p.CreatorID, nil
}

// ApplyInput defines application submission input.
type ApplyInput struct {
	CampaignID    uuid.UUID
	CreatorID     uuid.UUID
	CoverLetter   string
	PriceInCents  int64
	EstimatedDays int
}

// Apply submits a creator's application to a LIVE campaign. One application
// per (campaign, creator); the storage constraint catches races the pre-check
// misses.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*domain.Application, error) {
	if input.PriceInCents <= 0 {
		return nil, apperror.InvalidInput("price must be positive")
	}

	c, err := s.campaignRepo.GetByID(ctx, input.CampaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}
	if !c.IsLive() {
		return nil, apperror.InvalidState("campaign is not accepting applications")
	}

	existing, err := s.repo.GetApplicationByCampaignAndCreator(ctx, input.CampaignID, input.CreatorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("already applied to this campaign")
	}

	now := time.Now().UTC()
	a := &domain.Application{
		ApplicationID: uuid.New(),
		CampaignID:    input.CampaignID,
		CreatorID:     input.CreatorID,
		Status:        domain.ApplicationPending,
		CoverLetter:   strings.TrimSpace(input.CoverLetter),
		PriceInCents:  input.PriceInCents,
		EstimatedDays: input.EstimatedDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateApplication(ctx, a); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.Conflict("already applied to this campaign")
		}
		return nil, err
	}

	s.auditSvc.Record("application", a.ApplicationID.String(), audit.ActionCreate, &input.CreatorID, map[string]string{
		"campaignId": input.CampaignID.String(),
	})
	s.notifyBrand(ctx, c.BrandID, notification.TypeApplicationReceived,
		"New application on "+c.Title,
		"/campaigns/"+c.CampaignID.String()+"/applications")

	s.logger.Info().Str("application_id", a.ApplicationID.String()).Str("campaign_id", c.CampaignID.String()).Msg("application submitted")
	return a, nil
}

// UpdateApplicationStatus moves an application along its lifecycle on behalf
// of the brand: shortlist or reject. Offer-driven transitions go through the
// offer operations.
func (s *Service) UpdateApplicationStatus(ctx context.Context, applicationID, brandID uuid.UUID, target domain.ApplicationStatus) (*domain.Application, error) {
	if target != domain.ApplicationShortlisted && target != domain.ApplicationRejected {
		return nil, apperror.InvalidInput("status must be SHORTLISTED or REJECTED")
	}

	a, c, err := s.getApplicationForBrand(ctx, applicationID, brandID)
	if err != nil {
		return nil, err
	}

	if target == domain.ApplicationShortlisted {
		features, err := s.features.FeaturesForBrand(ctx, brandID)
		if err != nil {
			return nil, err
		}
		if !features.Has(subscription.FeatureCanShortlist) {
			return nil, apperror.Forbidden("current plan cannot shortlist applications")
		}
	}

	if err := statemachine.Validate(statemachine.MachineApplication, string(a.Status), string(target)); err != nil {
		return nil, apperror.InvalidState("%s", err.Error())
	}
	if err := s.repo.UpdateApplicationStatus(ctx, applicationID, a.Status, target); err != nil {
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.Conflict("application was modified concurrently")
		}
		return nil, err
	}
	a.Status = target

	s.auditSvc.Record("application", a.ApplicationID.String(), audit.ActionTransition, nil, map[string]string{
		"status":     string(target),
		"campaignId": c.CampaignID.String(),
	})
	return a, nil
}

// Withdraw lets the creator pull an application out of any non-terminal
// state. A pending offer on it lapses.
func (s *Service) Withdraw(ctx context.Context, applicationID, creatorID uuid.UUID) (*domain.Application, error) {
	a, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != creatorID {
		return nil, apperror.Forbidden("application belongs to another creator")
	}
	if err := statemachine.Validate(statemachine.MachineApplication, string(a.Status), string(domain.ApplicationWithdrawn)); err != nil {
		return nil, apperror.InvalidState("%s", err.Error())
	}

	pending, err := s.repo.GetPendingOffer(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	var pendingID *uuid.UUID
	if pending != nil {
		pendingID = &pending.OfferID
	}
	if err := s.repo.WithdrawApplication(ctx, applicationID, a.Status, pendingID); err != nil {
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.Conflict("application was modified concurrently")
		}
		return nil, err
	}
	a.Status = domain.ApplicationWithdrawn

	s.auditSvc.Record("application", a.ApplicationID.String(), audit.ActionTransition, &creatorID, map[string]string{
		"status": string(domain.ApplicationWithdrawn),
	})
	return a, nil
}

// GetApplication returns one application.
func (s *Service) GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	return s.getApplication(ctx, applicationID)
}

// ListResult is a paginated application listing.
type ListResult struct {
	Applications []*domain.Application
	Total        int
}

// ListApplications returns applications matching the filter.
func (s *Service) ListApplications(ctx context.Context, filter domain.ApplicationFilter, limit, offset int) (*ListResult, error) {
	apps, err := s.repo.ListApplications(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountApplications(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Applications: apps, Total: total}, nil
}

// OfferInput defines brand offer creation input.
type OfferInput struct {
	ApplicationID uuid.UUID
	BrandID       uuid.UUID
	PriceInCents  int64
	Message       *string
	Deliverables  []string
	Deadline      *time.Time
}

// CreateOffer creates the brand's offer on a shortlisted or counter-offered
// application. At most one PENDING offer per application.
func (s *Service) CreateOffer(ctx context.Context, input OfferInput) (*domain.Offer, error) {
	if input.PriceInCents <= 0 {
		return nil, apperror.InvalidInput("price must be positive")
	}
	if len(input.Deliverables) == 0 {
		return nil, apperror.InvalidInput("at least one deliverable is required")
	}

	a, c, err := s.getApplicationForBrand(ctx, input.ApplicationID, input.BrandID)
	if err != nil {
		return nil, err
	}

	features, err := s.features.FeaturesForBrand(ctx, input.BrandID)
	if err != nil {
		return nil, err
	}
	if !features.Has(subscription.FeatureCanContract) {
		return nil, apperror.Forbidden("current plan cannot send offers")
	}

	if err := statemachine.Validate(statemachine.MachineApplication, string(a.Status), string(domain.ApplicationOffered)); err != nil {
		return nil, apperror.InvalidState("%s", err.Error())
	}
	pending, err := s.repo.GetPendingOffer(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, apperror.Conflict("application already has a pending offer")
	}

	now := time.Now().UTC()
	expires := now.Add(s.offerTTL)
	o := &domain.Offer{
		OfferID:       uuid.New(),
		ApplicationID: input.ApplicationID,
		FromBrand:     true,
		Status:        domain.OfferPending,
		PriceInCents:  input.PriceInCents,
		Message:       input.Message,
		Deliverables:  input.Deliverables,
		Deadline:      input.Deadline,
		ExpiresAt:     &expires,
		CreatedAt:     now,
	}
	if err := s.repo.CreateOffer(ctx, o, a.Status, domain.ApplicationOffered); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.Conflict("application already has a pending offer")
		}
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.Conflict("application was modified concurrently")
		}
		return nil, err
	}

	s.auditSvc.Record("offer", o.OfferID.String(), audit.ActionCreate, nil, map[string]string{
		"applicationId": input.ApplicationID.String(),
		"priceInCents":  fmt.Sprintf("%d", input.PriceInCents),
	})
	s.notifyCreatorUser(ctx, a.CreatorID, notification.TypeOfferReceived,
		"You received an offer on "+c.Title,
		"/applications/"+a.ApplicationID.String())

	s.logger.Info().Str("offer_id", o.OfferID.String()).Str("application_id", input.ApplicationID.String()).Msg("offer created")
	return o, nil
}

// RespondInput defines the creator's response to a pending offer.
type RespondInput struct {
	OfferID   uuid.UUID
	CreatorID uuid.UUID
	Accept    bool

	// Counter proposes new terms instead of accepting or rejecting. When set,
	// Accept is ignored.
	Counter *CounterTerms
}

// CounterTerms carries the terms of a counter-offer. Zero-value fields fall
// back to the original offer's terms.
type CounterTerms struct {
	PriceInCents int64
	Message      *string
	Deliverables []string
	Deadline     *time.Time
}

// RespondResult contains the updated offer and, on acceptance, the contract
// snapshot.
type RespondResult struct {
	Offer    *domain.Offer
	Counter  *domain.Offer
	Contract *contract.Contract
}

// Respond records the creator's accept, reject or counter on a pending offer.
// Expiry is applied lazily: a lapsed offer flips to EXPIRED here and the
// response is refused. Acceptance snapshots the offer terms into a contract
// in the same transaction that closes the offer.
func (s *Service) Respond(ctx context.Context, input RespondInput) (*RespondResult, error) {
	o, err := s.repo.GetOfferByID(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("offer not found")
	}
	a, err := s.getApplication(ctx, o.ApplicationID)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != input.CreatorID {
		return nil, apperror.Forbidden("offer belongs to another creator")
	}
	if o.Status != domain.OfferPending {
		return nil, apperror.InvalidState("offer is %s", o.Status)
	}
	if o.IsExpired(time.Now().UTC()) {
		// A concurrent writer may already have moved the offer; either way it
		// is no longer answerable.
		if err := s.repo.UpdateOfferStatus(ctx, o.OfferID, domain.OfferPending, domain.OfferExpired); err != nil && !errors.Is(err, domain.ErrStale) {
			return nil, err
		}
		return nil, apperror.InvalidState("offer has expired")
	}

	if input.Counter != nil {
		return s.counter(ctx, o, a, input.CreatorID, *input.Counter)
	}
	if input.Accept {
		return s.accept(ctx, o, a, input.CreatorID)
	}
	return s.reject(ctx, o, a, input.CreatorID)
}

// GetOffer returns one offer.
func (s *Service) GetOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	o, err := s.repo.GetOfferByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.NotFound("offer not found")
	}
	return o, nil
}

// ListOffers returns the full offer history of an application, oldest first.
func (s *Service) ListOffers(ctx context.Context, applicationID uuid.UUID) ([]*domain.Offer, error) {
	return s.repo.ListOffers(ctx, applicationID)
}

func (s *Service) accept(ctx context.Context, o *domain.Offer, a *domain.Application, creatorID uuid.UUID) (*RespondResult, error) {
	c, err := s.campaignRepo.GetByID(ctx, a.CampaignID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("campaign not found")
	}

	now := time.Now().UTC()
	contractSnapshot := &contract.Contract{
		ContractID:     uuid.New(),
		ApplicationID:  a.ApplicationID,
		CampaignID:     a.CampaignID,
		BrandID:        c.BrandID,
		CreatorID:      a.CreatorID,
		Status:         contract.StatusActive,
		PriceInCents:   o.PriceInCents,
		CommissionRate: s.commissionRate,
		Deliverables:   o.Deliverables,
		Deadline:       o.Deadline,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.AcceptOffer(ctx, o.OfferID, a.ApplicationID, contractSnapshot); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.Conflict("application already has a contract")
		}
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.InvalidState("offer is no longer pending")
		}
		return nil, err
	}
	o.Status = domain.OfferAccepted
	o.RespondedAt = &now
	a.Status = domain.ApplicationAccepted

	s.auditSvc.Record("contract", contractSnapshot.ContractID.String(), audit.ActionCreate, &creatorID, map[string]string{
		"offerId":      o.OfferID.String(),
		"priceInCents": fmt.Sprintf("%d", o.PriceInCents),
	})
	s.notifyBrand(ctx, c.BrandID, notification.TypeContractCreated,
		"Offer accepted on "+c.Title,
		"/contracts/"+contractSnapshot.ContractID.String())

	s.logger.Info().
		Str("offer_id", o.OfferID.String()).
		Str("contract_id", contractSnapshot.ContractID.String()).
		Msg("offer accepted, contract created")
	return &RespondResult{Offer: o, Contract: contractSnapshot}, nil
}

func (s *Service) reject(ctx context.Context, o *domain.Offer, a *domain.Application, creatorID uuid.UUID) (*RespondResult, error) {
	if err := s.repo.RejectOffer(ctx, o.OfferID, a.ApplicationID); err != nil {
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.InvalidState("offer is no longer pending")
		}
		return nil, err
	}
	now := time.Now().UTC()
	o.Status = domain.OfferRejected
	o.RespondedAt = &now
	a.Status = domain.ApplicationRejected

	s.auditSvc.Record("offer", o.OfferID.String(), audit.ActionTransition, &creatorID, map[string]string{
		"status": string(domain.OfferRejected),
	})
	s.notifyBrandOfCampaign(ctx, a.CampaignID, notification.TypeOfferResponded, "Your offer was declined")

	return &RespondResult{Offer: o}, nil
}

func (s *Service) counter(ctx context.Context, o *domain.Offer, a *domain.Application, creatorID uuid.UUID, terms CounterTerms) (*RespondResult, error) {
	price := terms.PriceInCents
	if price <= 0 {
		price = o.PriceInCents
	}
	deliverables := terms.Deliverables
	if len(deliverables) == 0 {
		deliverables = o.Deliverables
	}
	deadline := terms.Deadline
	if deadline == nil {
		deadline = o.Deadline
	}

	now := time.Now().UTC()
	expires := now.Add(s.offerTTL)
	counter := &domain.Offer{
		OfferID:       uuid.New(),
		ApplicationID: o.ApplicationID,
		FromBrand:     false,
		Status:        domain.OfferPending,
		PriceInCents:  price,
		Message:       terms.Message,
		Deliverables:  deliverables,
		Deadline:      deadline,
		ExpiresAt:     &expires,
		CreatedAt:     now,
	}
	if err := s.repo.CounterOffer(ctx, o.OfferID, counter); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.Conflict("application already has a pending offer")
		}
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.InvalidState("offer is no longer pending")
		}
		return nil, err
	}
	o.Status = domain.OfferCountered
	o.RespondedAt = &now
	a.Status = domain.ApplicationCounterOffered

	s.auditSvc.Record("offer", counter.OfferID.String(), audit.ActionCreate, &creatorID, map[string]string{
		"counters":     o.OfferID.String(),
		"priceInCents": fmt.Sprintf("%d", price),
	})
	s.notifyBrandOfCampaign(ctx, a.CampaignID, notification.TypeOfferResponded, "You received a counter-offer")

	s.logger.Info().Str("offer_id", counter.OfferID.String()).Str("counters", o.OfferID.String()).Msg("counter-offer created")
	return &RespondResult{Offer: o, Counter: counter}, nil
}

func (s *Service) getApplication(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	a, err := s.repo.GetApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperror.NotFound("application not found")
	}
	return a, nil
}

func (s *Service) getApplicationForBrand(ctx context.Context, applicationID, brandID uuid.UUID) (*domain.Application, *campaign.Campaign, error) {
	a, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.campaignRepo.GetByID(ctx, a.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, apperror.NotFound("campaign not found")
	}
	if c.BrandID != brandID {
		return nil, nil, apperror.Forbidden("application belongs to another brand's campaign")
	}
	return a, c, nil
}

func (s *Service) notifyBrand(ctx context.Context, brandID uuid.UUID, typ notification.Type, title, link string) {
	members, err := s.brandRepo.ListMembers(ctx, brandID)
	if err != nil {
		s.logger.Error().Err(err).Str("brand_id", brandID.String()).Msg("failed to resolve brand members for notification")
		return
	}
	for _, m := range members {
		if !m.IsActive {
			continue
		}
		s.notifier.Notify(ctx, m.UserID, typ, title, appNotification.Input{Link: &link})
	}
}

func (s *Service) notifyCreatorUser(ctx context.Context, creatorID uuid.UUID, typ notification.Type, title, link string) {
	p, err := s.creatorRepo.GetByID(ctx, creatorID)
	if err != nil || p == nil {
		s.logger.Error().Err(err).Str("creator_id", creatorID.String()).Msg("failed to resolve creator for notification")
		return
	}
	s.notifier.Notify(ctx, p.UserID, typ, title, appNotification.Input{Link: &link})
}

func (s *Service) notifyBrandOfCampaign(ctx context.Context, campaignID uuid.UUID, typ notification.Type, title string) {
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil || c == nil {
		return
	}
	s.notifyBrand(ctx, c.BrandID, typ, title, "/campaigns/"+campaignID.String())
}
