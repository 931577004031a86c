package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action classifies an audited operation.
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionUpdate     Action = "UPDATE"
	ActionTransition Action = "TRANSITION"
	ActionSubmit     Action = "SUBMIT"
	ActionReview     Action = "REVIEW"
	ActionPayment    Action = "PAYMENT"
	ActionMessage    Action = "MESSAGE"
)

// Entry is one audit log row. Audit writes are best-effort: a failed write is
// logged and the primary operation continues.
type Entry struct {
	ID         int64           `json:"id"`
	AuditID    uuid.UUID       `json:"auditId"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     Action          `json:"action"`
	ActorID    *uuid.UUID      `json:"actorId,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Filter controls audit queries.
type Filter struct {
	EntityType *string
	EntityID   *string
	Action     *Action
	ActorID    *uuid.UUID
	Since      *time.Time
}

// Repository defines persistence for audit entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Entry, error)
}
