package deliverable

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/collabify/collabify/internal/application/audit"
	appNotification "github.com/collabify/collabify/internal/application/notification"
	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/audit"
	"github.com/collabify/collabify/internal/domain/brand"
	domain "github.com/collabify/collabify/internal/domain/contract"
	"github.com/collabify/collabify/internal/domain/creator"
	"github.com/collabify/collabify/internal/domain/notification"
	"github.com/collabify/collabify/internal/domain/statemachine"
)

// Service drives deliverable submission and review, including the contract
// completion cascade when the last deliverable is approved.
type Service struct {
	repo        domain.Repository
	brandRepo   brand.Repository
	creatorRepo creator.Repository
	notifier    *appNotification.Service
	auditSvc    *appAudit.Service
	logger      zerolog.Logger
}

// NewService creates a deliverable service.
func NewService(repo domain.Repository, brandRepo brand.Repository, creatorRepo creator.Repository, notifier *appNotification.Service, auditSvc *appAudit.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		brandRepo:   brandRepo,
		creatorRepo: creatorRepo,
		notifier:    notifier,
		auditSvc:    auditSvc,
		logger:      logger.With().Str("service", "deliverable").Logger(),
	}
}

// SubmitInput defines a deliverable submission.
type SubmitInput struct {
	DeliverableID uuid.UUID
	CreatorID     uuid.UUID
	FileURL       *string
	LinkURL       *string
	Notes         *string
}

// Submit records a new versioned submission. Versions increase monotonically
// per deliverable; a resubmission after CHANGES_REQUESTED gets the next
// version. The contract moves to IN_REVIEW in the same transaction.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Submission, error) {
	if input.FileURL == nil && input.LinkURL == nil {
		return nil, apperror.InvalidInput("a file or link is required")
	}

	d, err := s.getDeliverable(ctx, input.DeliverableID)
	if err != nil {
		return nil, err
	}
	if d.CreatorID != input.CreatorID {
		return nil, apperror.Forbidden("deliverable belongs to another creator")
	}
	if d.Status != domain.DeliverablePending && d.Status != domain.DeliverableChangesRequested {
		return nil, apperror.InvalidState("deliverable is %s and cannot be submitted", d.Status)
	}

	c, err := s.getContract(ctx, d.ContractID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case domain.StatusActive, domain.StatusDelivering, domain.StatusInReview:
	default:
		return nil, apperror.InvalidState("contract is %s and no longer accepts submissions", c.Status)
	}

	sub := &domain.Submission{
		SubmissionID:  uuid.New(),
		DeliverableID: input.DeliverableID,
		FileURL:       input.FileURL,
		LinkURL:       input.LinkURL,
		Notes:         input.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	// The repository assigns the next version inside the transaction.
	if err := s.repo.SubmitDeliverable(ctx, sub, d.ContractID); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.Conflict("another submission for this deliverable raced this one")
		}
		return nil, err
	}

	s.auditSvc.Record("deliverable", d.DeliverableID.String(), audit.ActionSubmit, &input.CreatorID, map[string]interface{}{
		"contractId": d.ContractID.String(),
		"version":    sub.Version,
	})
	s.notifyBrand(ctx, c.BrandID, notification.TypeDeliverableSubmitted,
		"Deliverable submitted: "+d.Title,
		"/contracts/"+c.ContractID.String())

	s.logger.Info().
		Str("deliverable_id", d.DeliverableID.String()).
		Int("version", sub.Version).
		Msg("deliverable submitted")
	return sub, nil
}

// ReviewInput defines a brand review decision.
type ReviewInput struct {
	DeliverableID uuid.UUID
	BrandID       uuid.UUID
	ReviewerID    uuid.UUID
	Approved      bool
	Feedback      *string
}

// ReviewResult contains the review and whether the contract completed.
type ReviewResult struct {
	Review            *domain.Review
	Deliverable       *domain.Deliverable
	ContractCompleted bool
}

// Review approves a submitted deliverable or requests changes. When the last
// deliverable under a contract is approved, the contract flips to COMPLETED
// inside the review transaction.
func (s *Service) Review(ctx context.Context, input ReviewInput) (*ReviewResult, error) {
	if !input.Approved && (input.Feedback == nil || strings.TrimSpace(*input.Feedback) == "") {
		return nil, apperror.InvalidInput("feedback is required when requesting changes")
	}

	d, err := s.getDeliverable(ctx, input.DeliverableID)
	if err != nil {
		return nil, err
	}
	if d.Status != domain.DeliverableSubmitted {
		return nil, apperror.InvalidState("deliverable is %s and cannot be reviewed", d.Status)
	}

	c, err := s.getContract(ctx, d.ContractID)
	if err != nil {
		return nil, err
	}
	if c.BrandID != input.BrandID {
		return nil, apperror.Forbidden("contract belongs to another brand")
	}

	newStatus := domain.DeliverableChangesRequested
	if input.Approved {
		newStatus = domain.DeliverableApproved
	}
	rev := &domain.Review{
		ReviewID:      uuid.New(),
		DeliverableID: input.DeliverableID,
		ReviewedBy:    input.ReviewerID,
		Approved:      input.Approved,
		Feedback:      input.Feedback,
		CreatedAt:     time.Now().UTC(),
	}
	completed, err := s.repo.ReviewDeliverable(ctx, rev, newStatus, d.ContractID)
	if err != nil {
		return nil, err
	}
	d.Status = newStatus

	s.auditSvc.Record("deliverable", d.DeliverableID.String(), audit.ActionReview, &input.ReviewerID, map[string]interface{}{
		"approved":   input.Approved,
		"contractId": d.ContractID.String(),
	})
	title := "Changes requested on " + d.Title
	if input.Approved {
		title = "Deliverable approved: " + d.Title
	}
	s.notifyCreator(ctx, d.CreatorID, notification.TypeDeliverableReviewed, title, "/contracts/"+c.ContractID.String())
	if completed {
		s.notifyCreator(ctx, d.CreatorID, notification.TypeContractCreated,
			"Contract completed", "/contracts/"+c.ContractID.String())
		s.logger.Info().Str("contract_id", c.ContractID.String()).Msg("all deliverables approved, contract completed")
	}

	return &ReviewResult{Review: rev, Deliverable: d, ContractCompleted: completed}, nil
}

// GetContract returns one contract.
func (s *Service) GetContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	return s.getContract(ctx, contractID)
}

// ContractListResult is a paginated contract listing.
type ContractListResult struct {
	Contracts []*domain.Contract
	Total     int
}

// ListContracts returns contracts matching the filter.
func (s *Service) ListContracts(ctx context.Context, filter domain.Filter, limit, offset int) (*ContractListResult, error) {
	contracts, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ContractListResult{Contracts: contracts, Total: total}, nil
}

// ListDeliverables returns a contract's deliverables.
func (s *Service) ListDeliverables(ctx context.Context, contractID uuid.UUID) ([]*domain.Deliverable, error) {
	return s.repo.ListDeliverables(ctx, contractID)
}

// ListSubmissions returns a deliverable's submission history, oldest first.
func (s *Service) ListSubmissions(ctx context.Context, deliverableID uuid.UUID) ([]*domain.Submission, error) {
	return s.repo.ListSubmissions(ctx, deliverableID)
}

// ListReviews returns a deliverable's review history, oldest first.
func (s *Service) ListReviews(ctx context.Context, deliverableID uuid.UUID) ([]*domain.Review, error) {
	return s.repo.ListReviews(ctx, deliverableID)
}

// UpdateContractStatus applies a manual contract transition: cancellation,
// dispute, or dispute resolution. Reviews drive COMPLETED; it is not
// reachable here.
func (s *Service) UpdateContractStatus(ctx context.Context, contractID, brandID uuid.UUID, target domain.Status) (*domain.Contract, error) {
	if target == domain.StatusCompleted {
		return nil, apperror.InvalidInput("contracts complete through deliverable approval")
	}
	c, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.BrandID != brandID {
		return nil, apperror.Forbidden("contract belongs to another brand")
	}
	if err := statemachine.Validate(statemachine.MachineContract, string(c.Status), string(target)); err != nil {
		return nil, apperror.InvalidState("%s", err.Error())
	}

	now := time.Now().UTC()
	c.Status = target
	if target == domain.StatusCancelled {
		c.CancelledAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, c); err != nil {
		return nil, err
	}

	s.auditSvc.Record("contract", c.ContractID.String(), audit.ActionTransition, nil, map[string]string{
		"status": string(target),
	})
	return c, nil
}

func (s *Service) getDeliverable(ctx context.Context, deliverableID uuid.UUID) (*domain.Deliverable, error) {
	d, err := s.repo.GetDeliverableByID(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperror.NotFound("deliverable not found")
	}
	return d, nil
}

func (s *Service) getContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	c, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("contract not found")
	}
	return c, nil
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

func (s *Service) notifyCreator(ctx context.Context, creatorID uuid.UUID, typ notification.Type, title, link string) {
	p, err := s.creatorRepo.GetByID(ctx, creatorID)
	if err != nil || p == nil {
		s.logger.Error().Err(err).Str("creator_id", creatorID.String()).Msg("failed to resolve creator for notification")
		return
	}
	s.notifier.Notify(ctx, p.UserID, typ, title, appNotification.Input{Link: &link})
}
