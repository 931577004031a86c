package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/collabify/collabify/internal/application/audit"
	appNotification "github.com/collabify/collabify/internal/application/notification"
	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/audit"
	"github.com/collabify/collabify/internal/domain/contract"
	"github.com/collabify/collabify/internal/domain/creator"
	"github.com/collabify/collabify/internal/domain/notification"
	domain "github.com/collabify/collabify/internal/domain/payment"
)

// Service drives the escrow flow: hold, webhook-driven authorization, capture
// and release. Commission and payout are computed once at hold time.
type Service struct {
	repo           domain.Repository
	contractRepo   contract.Repository
	creatorRepo    creator.Repository
	processor      domain.Processor
	notifier       *appNotification.Service
	auditSvc       *appAudit.Service
	commissionRate float64
	logger         zerolog.Logger
}

// NewService creates a payment service.
func NewService(
	repo domain.Repository,
	contractRepo contract.Repository,
	creatorRepo creator.Repository,
	processor domain.Processor,
	notifier *appNotification.Service,
	auditSvc *appAudit.Service,
	commissionRate float64,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:           repo,
		contractRepo:   contractRepo,
		creatorRepo:    creatorRepo,
		processor:      processor,
		notifier:       notifier,
		auditSvc:       auditSvc,
		commissionRate: commissionRate,
		logger:         logger.With().Str("service", "payment").Logger(),
	}
}

// HoldResult contains the created intent and the processor's client secret
// for the brand-side confirmation step.
type HoldResult struct {
	Intent       *domain.IntentRecord
	ClientSecret string
}

// CreateHold opens a manual-capture authorization for the contract price and
// stores the PENDING intent with its ESCROW_HOLD ledger entry. At most one
// in-flight intent per contract. The processor call happens first; on local
// failure the idempotency key keeps a retry from double-authorizing.
func (s *Service) CreateHold(ctx context.Context, contractID, brandID uuid.UUID) (*HoldResult, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("contract not found")
	}
	if c.BrandID != brandID {
		return nil, apperror.Forbidden("contract belongs to another brand")
	}
	switch c.Status {
	case contract.StatusCancelled, contract.StatusDisputed:
		return nil, apperror.InvalidState("contract is %s", c.Status)
	}

	inFlight, err := s.repo.GetInFlightByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if inFlight != nil {
		return nil, apperror.Conflict("contract already has an in-flight payment")
	}

	commission, payout := domain.SplitCommission(c.PriceInCents, c.CommissionRate)

	hold, err := s.processor.CreateHold(ctx, c.PriceInCents, "usd",
		"hold-"+contractID.String(),
		map[string]string{
			"contractId": contractID.String(),
			"brandId":    brandID.String(),
		})
	if err != nil {
		return nil, apperror.ExternalProcessor("failed to create payment hold", err)
	}

	now := time.Now().UTC()
	rec := &domain.IntentRecord{
		IntentID:           uuid.New(),
		ContractID:         contractID,
		BrandID:            brandID,
		ProcessorPaymentID: hold.PaymentID,
		Status:             domain.StatusPending,
		AmountInCents:      c.PriceInCents,
		CommissionCents:    commission,
		CreatorPayoutCents: payout,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	entry := &domain.LedgerEntry{
		EntryID:       uuid.New(),
		ContractID:    contractID,
		Type:          domain.EntryEscrowHold,
		AmountInCents: c.PriceInCents,
		Description:   fmt.Sprintf("escrow hold for contract %s", contractID),
		CreatedAt:     now,
	}
	if err := s.repo.CreateIntent(ctx, rec, entry); err != nil {
		return nil, err
	}

	s.auditSvc.Record("payment", rec.IntentID.String(), audit.ActionPayment, nil, map[string]interface{}{
		"contractId":    contractID.String(),
		"amountInCents": c.PriceInCents,
		"event":         "hold",
	})
	s.logger.Info().
		Str("intent_id", rec.IntentID.String()).
		Str("contract_id", contractID.String()).
		Int64("amount_in_cents", c.PriceInCents).
		Msg("payment hold created")
	return &HoldResult{Intent: rec, ClientSecret: hold.ClientSecret}, nil
}

// HandleWebhook reconciles a verified processor event against the stored
// intent. Redelivered and out-of-order events are no-ops: each transition
// only fires from its allowed source states.
func (s *Service) HandleWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Type {
	case domain.EventAmountCapturableUpdated:
		changed, err := s.repo.SetStatusByProcessorPaymentID(ctx, event.PaymentID, domain.StatusAuthorized, []domain.Status{domain.StatusPending})
		if err != nil {
			return err
		}
		if changed {
			s.logger.Info().Str("processor_payment_id", event.PaymentID).Msg("payment authorized")
		}
	case domain.EventPaymentFailed:
		changed, err := s.repo.SetStatusByProcessorPaymentID(ctx, event.PaymentID, domain.StatusFailed, []domain.Status{domain.StatusPending, domain.StatusAuthorized})
		if err != nil {
			return err
		}
		if changed {
			s.logger.Warn().Str("processor_payment_id", event.PaymentID).Msg("payment failed")
		}
	case domain.EventSucceeded:
		// Capture confirmation. The capture path already moved the record;
		// this only covers a capture confirmed after a crash.
		if _, err := s.repo.SetStatusByProcessorPaymentID(ctx, event.PaymentID, domain.StatusCaptured, []domain.Status{domain.StatusAuthorized}); err != nil {
			return err
		}
	default:
		s.logger.Debug().Str("type", event.Type).Msg("ignoring webhook event")
	}
	return nil
}

// Capture converts an AUTHORIZED hold into captured escrow funds and appends
// the ESCROW_CAPTURE ledger entry.
func (s *Service) Capture(ctx context.Context, contractID, brandID uuid.UUID) (*domain.IntentRecord, error) {
	rec, err := s.repo.GetByContractAndStatus(ctx, contractID, domain.StatusAuthorized)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.NotFound("no authorized payment for contract")
	}
	if rec.BrandID != brandID {
		return nil, apperror.Forbidden("payment belongs to another brand")
	}

	if err := s.processor.Capture(ctx, rec.ProcessorPaymentID); err != nil {
		return nil, apperror.ExternalProcessor("failed to capture payment", err)
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		EntryID:       uuid.New(),
		ContractID:    contractID,
		Type:          domain.EntryEscrowCapture,
		AmountInCents: rec.AmountInCents,
		Description:   fmt.Sprintf("escrow capture for contract %s", contractID),
		CreatedAt:     now,
	}
	if err := s.repo.Capture(ctx, rec, entry); err != nil {
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.InvalidState("payment is no longer authorized")
		}
		return nil, err
	}
	rec.Status = domain.StatusCaptured
	rec.CapturedAt = &now

	s.auditSvc.Record("payment", rec.IntentID.String(), audit.ActionPayment, nil, map[string]interface{}{
		"contractId": contractID.String(),
		"event":      "capture",
	})
	s.logger.Info().Str("intent_id", rec.IntentID.String()).Msg("payment captured")
	return rec, nil
}

// Release pays out captured escrow once the contract is COMPLETED: the
// platform commission and creator payout entries are appended and the payout
// record created, all in one transaction. The two entries always sum to the
// captured amount.
func (s *Service) Release(ctx context.Context, contractID, brandID uuid.UUID) (*domain.IntentRecord, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperror.NotFound("contract not found")
	}
	if c.BrandID != brandID {
		return nil, apperror.Forbidden("contract belongs to another brand")
	}
	if c.Status != contract.StatusCompleted {
		return nil, apperror.InvalidState("contract must be COMPLETED before release, is %s", c.Status)
	}

	rec, err := s.repo.GetByContractAndStatus(ctx, contractID, domain.StatusCaptured)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.InvalidState("no captured payment for contract")
	}

	now := time.Now().UTC()
	commission := &domain.LedgerEntry{
		EntryID:       uuid.New(),
		ContractID:    contractID,
		Type:          domain.EntryPlatformCommission,
		AmountInCents: rec.CommissionCents,
		Description:   fmt.Sprintf("platform commission for contract %s", contractID),
		CreatedAt:     now,
	}
	payout := &domain.LedgerEntry{
		EntryID:       uuid.New(),
		ContractID:    contractID,
		Type:          domain.EntryCreatorPayout,
		AmountInCents: rec.CreatorPayoutCents,
		Description:   fmt.Sprintf("creator payout for contract %s", contractID),
		CreatedAt:     now,
	}
	payoutRec := &domain.PayoutRecord{
		PayoutID:      uuid.New(),
		CreatorID:     c.CreatorID,
		ContractID:    contractID,
		AmountInCents: rec.CreatorPayoutCents,
		Status:        domain.PayoutPending,
		CreatedAt:     now,
	}
	if err := s.repo.Release(ctx, rec, commission, payout, payoutRec); err != nil {
		if errors.Is(err, domain.ErrStale) {
			return nil, apperror.InvalidState("payment was already released")
		}
		return nil, err
	}
	rec.Status = domain.StatusReleased
	rec.ReleasedAt = &now

	s.auditSvc.Record("payment", rec.IntentID.String(), audit.ActionPayment, nil, map[string]interface{}{
		"contractId":  contractID.String(),
		"event":       "release",
		"payoutCents": rec.CreatorPayoutCents,
	})
	s.notifyCreator(ctx, c.CreatorID, rec.CreatorPayoutCents, contractID)

	s.logger.Info().
		Str("intent_id", rec.IntentID.String()).
		Int64("payout_cents", rec.CreatorPayoutCents).
		Msg("escrow released to creator")
	return rec, nil
}

// GetByContract returns the contract's current in-flight or most relevant
// intent for status display.
func (s *Service) GetByContract(ctx context.Context, contractID uuid.UUID) (*domain.IntentRecord, error) {
	rec, err := s.repo.GetInFlightByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	for _, status := range []domain.Status{domain.StatusReleased, domain.StatusCaptured, domain.StatusFailed} {
		rec, err = s.repo.GetByContractAndStatus(ctx, contractID, status)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, apperror.NotFound("no payment for contract")
}

// Ledger returns the append-only money-movement history of a contract.
func (s *Service) Ledger(ctx context.Context, contractID uuid.UUID) ([]*domain.LedgerEntry, error) {
	return s.repo.ListLedger(ctx, contractID)
}

// Payouts returns a creator's payout history, newest first.
func (s *Service) Payouts(ctx context.Context, creatorID uuid.UUID) ([]*domain.PayoutRecord, error) {
	return s.repo.ListPayouts(ctx, creatorID)
}

func (s *Service) notifyCreator(ctx context.Context, creatorID uuid.UUID, amountCents int64, contractID uuid.UUID) {
	p, err := s.creatorRepo.GetByID(ctx, creatorID)
	if err != nil || p == nil {
		s.logger.Error().Err(err).Str("creator_id", creatorID.String()).Msg("failed to resolve creator for payout notification")
		return
	}
	link := "/contracts/" + contractID.String()
	s.notifier.Notify(ctx, p.UserID, notification.TypePaymentReleased,
		fmt.Sprintf("Payment released: $%.2f", float64(amountCents)/100),
		appNotification.Input{Link: &link})
}
