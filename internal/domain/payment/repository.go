package payment

import (
	"context"

	"github.com/google/uuid"
)

// ErrStale is returned when a guarded transition matches no row: the intent
// left the expected source status between the caller's read and the write.
// The enclosing transaction rolls back; no ledger entry is committed.
var ErrStale = staleError{}

type staleError struct{}

func (staleError) Error() string { return "payment intent is no longer in the expected status" }

// Repository defines persistence for payment intents, ledger entries and
// payouts. Multi-row methods are transactional; the ledger is append-only.
type Repository interface {
	GetInFlightByContract(ctx context.Context, contractID uuid.UUID) (*IntentRecord, error)
	GetByContractAndStatus(ctx context.Context, contractID uuid.UUID, status Status) (*IntentRecord, error)
	GetByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*IntentRecord, error)

	// CreateIntent inserts the PENDING record and its ESCROW_HOLD ledger entry
	// in one transaction.
	CreateIntent(ctx context.Context, rec *IntentRecord, hold *LedgerEntry) error

	// SetStatusByProcessorPaymentID applies a webhook-driven status change
	// keyed by the processor's payment id, only when the record's current
	// status is one of the allowed source states. Redelivery is a no-op.
	// Returns whether a row changed.
	SetStatusByProcessorPaymentID(ctx context.Context, processorPaymentID string, status Status, from []Status) (bool, error)

	// Capture marks the record CAPTURED with capturedAt and appends the
	// ESCROW_CAPTURE entry in one transaction. ErrStale when the record is no
	// longer AUTHORIZED.
	Capture(ctx context.Context, rec *IntentRecord, entry *LedgerEntry) error

	// Release marks the record RELEASED with releasedAt and appends the
	// commission entry, payout entry and payout record in one transaction.
	// ErrStale when the record is no longer CAPTURED, so a raced release can
	// never double-pay.
	Release(ctx context.Context, rec *IntentRecord, commission, payout *LedgerEntry, payoutRec *PayoutRecord) error

	ListLedger(ctx context.Context, contractID uuid.UUID) ([]*LedgerEntry, error)
	ListPayouts(ctx context.Context, creatorID uuid.UUID) ([]*PayoutRecord, error)
}
