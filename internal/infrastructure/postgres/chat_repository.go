package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabify/collabify/internal/domain/chat"
)

// ChatRepository implements chat.Repository. Conversation identity is
// (brand_id, creator_id, campaign_key) where campaign_key stringifies the
// optional campaign id; the unique constraint makes concurrent first-contact
// converge on one row.
type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

const conversationColumns = "id, conversation_id, brand_id, creator_id, campaign_id, created_at, updated_at"
const messageColumns = "id, message_id, conversation_id, sender_id, content, attachment_url, attachment_name, created_at"

func (r *ChatRepository) GetOrCreateConversation(ctx context.Context, brandID, creatorID uuid.UUID, campaignID *uuid.UUID) (*chat.Conversation, error) {
	key := chat.CampaignKey(campaignID)
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (conversation_id, brand_id, creator_id, campaign_id, campaign_key, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		ON CONFLICT (brand_id, creator_id, campaign_key) DO NOTHING
	`, uuid.New(), brandID, creatorID, campaignID, key, now)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE brand_id=$1 AND creator_id=$2 AND campaign_key=$3
	`, brandID, creatorID, key)
	return scanConversation(row)
}

func (r *ChatRepository) GetConversation(ctx context.Context, conversationID uuid.UUID) (*chat.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE conversation_id=$1`, conversationID)
	return scanConversation(row)
}

func (r *ChatRepository) ListInbox(ctx context.Context, userID uuid.UUID, filter chat.InboxFilter) ([]*chat.InboxEntry, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations`
	args := []interface{}{}
	conds := []string{}
	if filter.BrandID != nil {
		conds = append(conds, "brand_id=$"+itoa(len(args)+1))
		args = append(args, *filter.BrandID)
	}
	if filter.CreatorID != nil {
		conds = append(conds, "creator_id=$"+itoa(len(args)+1))
		args = append(args, *filter.CreatorID)
	}
	if filter.CampaignID != nil {
		conds = append(conds, "campaign_id=$"+itoa(len(args)+1))
		args = append(args, *filter.CampaignID)
	}
	if filter.AssignedTo != nil {
		conds = append(conds, "conversation_id IN (SELECT conversation_id FROM conversation_assignments WHERE user_id=$"+itoa(len(args)+1)+")")
		args = append(args, *filter.AssignedTo)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conversations []*chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]*chat.InboxEntry, 0, len(conversations))
	for _, c := range conversations {
		last, err := r.LatestMessage(ctx, c.ConversationID)
		if err != nil {
			return nil, err
		}
		receipt, err := r.GetReadReceipt(ctx, c.ConversationID, userID)
		if err != nil {
			return nil, err
		}
		var lastReadAt *time.Time
		if receipt != nil {
			lastReadAt = &receipt.LastReadAt
		}
		unread := chat.HasUnread(last, lastReadAt)
		if filter.Unread != nil && unread != *filter.Unread {
			continue
		}
		entries = append(entries, &chat.InboxEntry{
			Conversation: c,
			LastMessage:  last,
			HasUnread:    unread,
		})
	}
	return entries, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *chat.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (message_id, conversation_id, sender_id, content, attachment_url, attachment_name, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, m.MessageID, m.ConversationID, m.SenderID, m.Content, m.AttachmentURL, m.AttachmentName, m.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at=$1 WHERE conversation_id=$2
	`, m.CreatedAt, m.ConversationID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO read_receipts (conversation_id, user_id, last_read_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET last_read_at=EXCLUDED.last_read_at
	`, m.ConversationID, m.SenderID, m.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ChatRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*chat.Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id=$1
	`, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var messages []*chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

func (r *ChatRepository) LatestMessage(ctx context.Context, conversationID uuid.UUID) (*chat.Message, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1
	`, conversationID)
	return scanMessage(row)
}

func (r *ChatRepository) UpsertReadReceipt(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO read_receipts (conversation_id, user_id, last_read_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET last_read_at=EXCLUDED.last_read_at
	`, conversationID, userID, readAt)
	return err
}

func (r *ChatRepository) GetReadReceipt(ctx context.Context, conversationID, userID uuid.UUID) (*chat.ReadReceipt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT conversation_id, user_id, last_read_at
		FROM read_receipts WHERE conversation_id=$1 AND user_id=$2
	`, conversationID, userID)
	var rr chat.ReadReceipt
	if err := row.Scan(&rr.ConversationID, &rr.UserID, &rr.LastReadAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rr, nil
}

func (r *ChatRepository) AddAssignment(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_assignments (conversation_id, user_id)
		VALUES ($1,$2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID)
	return err
}

func (r *ChatRepository) RemoveAssignment(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM conversation_assignments WHERE conversation_id=$1 AND user_id=$2
	`, conversationID, userID)
	return err
}

func (r *ChatRepository) ListAssignments(ctx context.Context, conversationID uuid.UUID) ([]*chat.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id, user_id, created_at
		FROM conversation_assignments WHERE conversation_id=$1 ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []*chat.Assignment
	for rows.Next() {
		var a chat.Assignment
		if err := rows.Scan(&a.ConversationID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var c chat.Conversation
	if err := row.Scan(&c.ID, &c.ConversationID, &c.BrandID, &c.CreatorID, &c.CampaignID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var m chat.Message
	if err := row.Scan(&m.ID, &m.MessageID, &m.ConversationID, &m.SenderID, &m.Content, &m.AttachmentURL, &m.AttachmentName, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
