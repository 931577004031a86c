package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type classifies what a notification is about.
type Type string

const (
	TypeApplicationReceived  Type = "APPLICATION_RECEIVED"
	TypeOfferReceived        Type = "OFFER_RECEIVED"
	TypeOfferResponded       Type = "OFFER_RESPONDED"
	TypeContractCreated      Type = "CONTRACT_CREATED"
	TypeDeliverableSubmitted Type = "DELIVERABLE_SUBMITTED"
	TypeDeliverableReviewed  Type = "DELIVERABLE_REVIEWED"
	TypePaymentReleased      Type = "PAYMENT_RELEASED"
	TypeMessageReceived      Type = "MESSAGE_RECEIVED"
)

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// Notification is a per-user inbox item. Creation is fire-and-forget from
// lifecycle operations; failures never abort the primary operation.
type Notification struct {
	ID             int64           `json:"id"`
	NotificationID uuid.UUID       `json:"notificationId"`
	UserID         uuid.UUID       `json:"userId"`
	Type           Type            `json:"type"`
	Title          string          `json:"title"`
	Body           *string         `json:"body,omitempty"`
	Link           *string         `json:"link,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	IsRead         bool            `json:"isRead"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// New creates a notification for a user.
func New(userID uuid.UUID, typ Type, title string) *Notification {
	return &Notification{
		NotificationID: uuid.New(),
		UserID:         userID,
		Type:           typ,
		Title:          title,
		CreatedAt:      time.Now().UTC(),
	}
}

// SSEClient represents one live SSE connection. A user may hold several
// concurrent clients (tabs); all receive events addressed to the user.
type SSEClient struct {
	ClientID    string
	UserID      *string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates an SSE client with a buffered message channel.
func NewSSEClient(clientID string, userID *string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel.
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage is one event pushed over SSE.
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates an SSE message.
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
