package payment

import "context"

// Hold is an authorization opened with the external processor, reversible
// until captured.
type Hold struct {
	PaymentID    string
	ClientSecret string
}

// Processor abstracts the external payment processor. Implementations must
// accept an idempotency key on CreateHold so a retried hold does not
// double-authorize.
type Processor interface {
	// CreateHold opens a manual-capture authorization for amountInCents.
	// Metadata travels with the processor object for reconciliation.
	CreateHold(ctx context.Context, amountInCents int64, currency string, idempotencyKey string, metadata map[string]string) (*Hold, error)

	// Capture converts the hold into a funds transfer.
	Capture(ctx context.Context, paymentID string) error
}

// WebhookEvent is a verified event delivered by the processor. Delivery may
// repeat or arrive out of order.
type WebhookEvent struct {
	Type      string
	PaymentID string
}

// Webhook event types handled by the reconciliation path.
const (
	EventAmountCapturableUpdated = "payment_intent.amount_capturable_updated"
	EventSucceeded               = "payment_intent.succeeded"
	EventPaymentFailed           = "payment_intent.payment_failed"
)
