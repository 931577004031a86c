package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InboxFilter controls inbox listing.
type InboxFilter struct {
	BrandID      *uuid.UUID
	CreatorID    *uuid.UUID
	CampaignID   *uuid.UUID
	AssignedTo   *uuid.UUID
	Unread       *bool
}

// Repository defines persistence for conversations, messages, receipts and
// assignments.
type Repository interface {
	// GetOrCreateConversation resolves the conversation for the identity
	// triple, creating it on first contact. Concurrent calls converge on one
	// row; the uniqueness constraint is authoritative.
	GetOrCreateConversation(ctx context.Context, brandID, creatorID uuid.UUID, campaignID *uuid.UUID) (*Conversation, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID) (*Conversation, error)
	ListInbox(ctx context.Context, userID uuid.UUID, filter InboxFilter) ([]*InboxEntry, error)

	// CreateMessage inserts the message, bumps the conversation's updatedAt,
	// and upserts the sender's own read receipt in one transaction.
	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error)
	LatestMessage(ctx context.Context, conversationID uuid.UUID) (*Message, error)

	UpsertReadReceipt(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error
	GetReadReceipt(ctx context.Context, conversationID, userID uuid.UUID) (*ReadReceipt, error)

	AddAssignment(ctx context.Context, conversationID, userID uuid.UUID) error
	RemoveAssignment(ctx context.Context, conversationID, userID uuid.UUID) error
	ListAssignments(ctx context.Context, conversationID uuid.UUID) ([]*Assignment, error)
}
