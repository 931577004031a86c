package payment

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status represents the escrow state of a payment intent.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAuthorized Status = "AUTHORIZED"
	StatusCaptured   Status = "CAPTURED"
	StatusReleased   Status = "RELEASED"
	StatusRefunded   Status = "REFUNDED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryEscrowHold         EntryType = "ESCROW_HOLD"
	EntryEscrowCapture      EntryType = "ESCROW_CAPTURE"
	EntryPlatformCommission EntryType = "PLATFORM_COMMISSION"
	EntryCreatorPayout      EntryType = "CREATOR_PAYOUT"
)

// PayoutStatus represents the downstream payout state.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "PENDING"
	PayoutPaid    PayoutStatus = "PAID"
)

// IntentRecord tracks one escrow payment for a contract. Commission and
// payout are computed once at hold time and never recomputed.
type IntentRecord struct {
	ID                 int64      `json:"id"`
	IntentID           uuid.UUID  `json:"intentId"`
	ContractID         uuid.UUID  `json:"contractId"`
	BrandID            uuid.UUID  `json:"brandId"`
	ProcessorPaymentID string     `json:"processorPaymentId"`
	Status             Status     `json:"status"`
	AmountInCents      int64      `json:"amountInCents"`
	CommissionCents    int64      `json:"commissionCents"`
	CreatorPayoutCents int64      `json:"creatorPayoutCents"`
	CapturedAt         *time.Time `json:"capturedAt,omitempty"`
	ReleasedAt         *time.Time `json:"releasedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// InFlight reports whether the record still blocks a new intent for the same
// contract.
func (r *IntentRecord) InFlight() bool {
	return r.Status == StatusPending || r.Status == StatusAuthorized
}

// LedgerEntry is one append-only money-movement record. Entries are never
// updated or deleted; corrections are offsetting entries.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	EntryID       uuid.UUID `json:"entryId"`
	ContractID    uuid.UUID `json:"contractId"`
	Type          EntryType `json:"type"`
	AmountInCents int64     `json:"amountInCents"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PayoutRecord is the creator-facing payout created at release time.
type PayoutRecord struct {
	ID            int64        `json:"id"`
	PayoutID      uuid.UUID    `json:"payoutId"`
	CreatorID     uuid.UUID    `json:"creatorId"`
	ContractID    uuid.UUID    `json:"contractId"`
	AmountInCents int64        `json:"amountInCents"`
	Status        PayoutStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// SplitCommission computes the platform commission and creator payout for an
// amount. commission = round(amount * rate); payout takes the remainder so
// the two always sum to amount.
func SplitCommission(amountInCents int64, rate float64) (commission, payout int64) {
	commission = int64(math.Round(float64(amountInCents) * rate))
	return commission, amountInCents - commission
}
