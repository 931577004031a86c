package chat

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the single thread between a brand and a creator, optionally
// scoped to a campaign. Identity is (brandId, creatorId, campaignKey) where
// campaignKey is the empty string when no campaign is attached, so the
// storage uniqueness constraint covers the campaign-less case too.
type Conversation struct {
	ID             int64      `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	BrandID        uuid.UUID  `json:"brandId"`
	CreatorID      uuid.UUID  `json:"creatorId"`
	CampaignID     *uuid.UUID `json:"campaignId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CampaignKey normalizes the optional campaign id for the identity triple.
func CampaignKey(campaignID *uuid.UUID) string {
	if campaignID == nil {
		return ""
	}
	return campaignID.String()
}

// Message is append-only, ordered by creation time within a conversation.
type Message struct {
	ID             int64     `json:"id"`
	MessageID      uuid.UUID `json:"messageId"`
	ConversationID uuid.UUID `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	Content        string    `json:"content"`
	AttachmentURL  *string   `json:"attachmentUrl,omitempty"`
	AttachmentName *string   `json:"attachmentName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReadReceipt tracks a user's last-read time in a conversation. Unread state
// is derived from it on read, never stored.
type ReadReceipt struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
	LastReadAt     time.Time `json:"lastReadAt"`
}

// Assignment routes a conversation to a brand team member.
type Assignment struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// InboxEntry is a conversation with its derived per-user read state.
type InboxEntry struct {
	Conversation *Conversation `json:"conversation"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	HasUnread    bool          `json:"hasUnread"`
}

// HasUnread reports whether lastMessage is strictly newer than the user's
// last-read time. A missing receipt means everything is unread.
func HasUnread(lastMessage *Message, lastReadAt *time.Time) bool {
	if lastMessage == nil {
		return false
	}
	if lastReadAt == nil {
		return true
	}
	return lastMessage.CreatedAt.After(*lastReadAt)
}
