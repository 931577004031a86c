package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/collabify/collabify/internal/application/audit"
	appNotification "github.com/collabify/collabify/internal/application/notification"
	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/audit"
	"github.com/collabify/collabify/internal/domain/brand"
	domain "github.com/collabify/collabify/internal/domain/chat"
	"github.com/collabify/collabify/internal/domain/creator"
	"github.com/collabify/collabify/internal/domain/notification"
	"github.com/collabify/collabify/internal/domain/subscription"
	"github.com/collabify/collabify/internal/domain/user"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 5000

// FeatureSource resolves the plan features of a brand.
type FeatureSource interface {
	FeaturesForBrand(ctx context.Context, brandID uuid.UUID) (subscription.Features, error)
}

// Service drives conversations and messages. Outbound events go to the SSE
// room of the conversation; inbound commands arrive over HTTP.
type Service struct {
	repo        domain.Repository
	brandRepo   brand.Repository
	creatorRepo creator.Repository
	features    FeatureSource
	sseHub      notification.SSEHub
	notifier    *appNotification.Service
	auditSvc    *appAudit.Service
	logger      zerolog.Logger
}

// NewService creates a chat service.
func NewService(
	repo domain.Repository,
	brandRepo brand.Repository,
	creatorRepo creator.Repository,
	features FeatureSource,
	sseHub notification.SSEHub,
	notifier *appNotification.Service,
	auditSvc *appAudit.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		brandRepo:   brandRepo,
		creatorRepo: creatorRepo,
		features:    features,
		sseHub:      sseHub,
		notifier:    notifier,
		auditSvc:    auditSvc,
		logger:      logger.With().Str("service", "chat").Logger(),
	}
}

// Room names the SSE room of a conversation.
func Room(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}

// StartInput identifies the conversation to open or resume.
type StartInput struct {
	BrandID    uuid.UUID
	CreatorID  uuid.UUID
	CampaignID *uuid.UUID
	StartedBy  *user.User
}

// Start opens (or resumes) the single conversation for the identity triple.
// Brand-initiated conversations are gated on the plan's messaging feature.
func (s *Service) Start(ctx context.Context, input StartInput) (*domain.Conversation, error) {
	if input.StartedBy != nil && input.StartedBy.Role == user.RoleBrand {
		features, err := s.features.FeaturesForBrand(ctx, input.BrandID)
		if err != nil {
			return nil, err
		}
		if !features.Has(subscription.FeatureCanMessage) {
			return nil, apperror.Forbidden("current plan cannot send messages")
		}
	}

	b, err := s.brandRepo.GetByID(ctx, input.BrandID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperror.NotFound("brand not found")
	}
	p, err := s.creatorRepo.GetByID(ctx, input.CreatorID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("creator not found")
	}

	conv, err := s.repo.GetOrCreateConversation(ctx, input.BrandID, input.CreatorID, input.CampaignID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// SendInput defines a message send.
type SendInput struct {
	ConversationID uuid.UUID
	Sender         *user.User
	Content        string
	AttachmentURL  *string
	AttachmentName *string
}

// Send appends a message and broadcasts message:new to the conversation room.
// Participants without a live room connection get a notification instead.
func (s *Service) Send(ctx context.Context, input SendInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.AttachmentURL == nil {
		return nil, apperror.InvalidInput("message content is required")
	}
	if len(content) > MaxMessageLength {
		return nil, apperror.InvalidInput("message exceeds %d characters", MaxMessageLength)
	}

	conv, err := s.getConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyParticipant(ctx, conv, input.Sender); err != nil {
		return nil, err
	}
	if input.Sender.Role == user.RoleBrand {
		features, err := s.features.FeaturesForBrand(ctx, conv.BrandID)
		if err != nil {
			return nil, err
		}
		if !features.Has(subscription.FeatureCanMessage) {
			return nil, apperror.Forbidden("current plan cannot send messages")
		}
	}

	m := &domain.Message{
		MessageID:      uuid.New(),
		ConversationID: conv.ConversationID,
		SenderID:       input.Sender.UserID,
		Content:        content,
		AttachmentURL:  input.AttachmentURL,
		AttachmentName: input.AttachmentName,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	data, err := json.Marshal(m)
	if err == nil {
		s.sseHub.BroadcastToRoom(Room(conv.ConversationID), notification.NewSSEMessage("message:new", data))
	}
	s.notifyOffline(ctx, conv, input.Sender)
	s.auditSvc.Record("conversation", conv.ConversationID.String(), audit.ActionMessage, &input.Sender.UserID, nil)

	return m, nil
}

// Typing broadcasts a transient message:typing event to the room. Nothing is
// persisted.
func (s *Service) Typing(ctx context.Context, conversationID uuid.UUID, u *user.User) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.verifyParticipant(ctx, conv, u); err != nil {
		return err
	}
	data, err := json.Marshal(map[string]string{
		"conversationId": conversationID.String(),
		"userId":         u.UserID.String(),
	})
	if err != nil {
		return err
	}
	s.sseHub.BroadcastToRoom(Room(conversationID), notification.NewSSEMessage("message:typing", data))
	return nil
}

// MarkRead moves the user's read receipt to now and broadcasts message:read.
// Unread state is derived from receipts on read, never stored.
func (s *Service) MarkRead(ctx context.Context, conversationID uuid.UUID, u *user.User) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.verifyParticipant(ctx, conv, u); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.repo.UpsertReadReceipt(ctx, conversationID, u.UserID, now); err != nil {
		return err
	}
	data, err := json.Marshal(map[string]string{
		"conversationId": conversationID.String(),
		"userId":         u.UserID.String(),
		"readAt":         now.Format(time.RFC3339),
	})
	if err == nil {
		s.sseHub.BroadcastToRoom(Room(conversationID), notification.NewSSEMessage("message:read", data))
	}
	return nil
}

// MessagesResult is one page of messages plus the total count.
type MessagesResult struct {
	Messages []*domain.Message
	Total    int
}

// Messages returns a page of messages, newest first.
func (s *Service) Messages(ctx context.Context, conversationID uuid.UUID, u *user.User, limit, offset int) (*MessagesResult, error) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyParticipant(ctx, conv, u); err != nil {
		return nil, err
	}
	messages, total, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &MessagesResult{Messages: messages, Total: total}, nil
}

// Inbox returns the user's conversations with derived unread state, most
// recently active first.
func (s *Service) Inbox(ctx context.Context, u *user.User, filter domain.InboxFilter) ([]*domain.InboxEntry, error) {
	switch u.Role {
	case user.RoleCreator:
		p, err := s.creatorRepo.GetByUserID(ctx, u.UserID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperror.NotFound("creator profile not found")
		}
		filter.CreatorID = &p.CreatorID
		filter.BrandID = nil
	case user.RoleBrand:
		if filter.BrandID == nil {
			return nil, apperror.InvalidInput("brand scope is required")
		}
	}
	return s.repo.ListInbox(ctx, u.UserID, filter)
}

// Join verifies room membership for an SSE client and adds it to the
// conversation room.
func (s *Service) Join(ctx context.Context, conversationID uuid.UUID, u *user.User, clientID string) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.verifyParticipant(ctx, conv, u); err != nil {
		return err
	}
	s.sseHub.JoinRoom(clientID, Room(conversationID))
	return nil
}

// Leave removes an SSE client from the conversation room.
func (s *Service) Leave(conversationID uuid.UUID, clientID string) {
	s.sseHub.LeaveRoom(clientID, Room(conversationID))
}

// Assign routes the conversation to a brand team member.
func (s *Service) Assign(ctx context.Context, conversationID, assigneeID uuid.UUID, actor *user.User) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.verifyParticipant(ctx, conv, actor); err != nil {
		return err
	}
	m, err := s.brandRepo.GetMember(ctx, conv.BrandID, assigneeID)
	if err != nil {
		return err
	}
	if m == nil || !m.IsActive {
		return apperror.InvalidInput("assignee is not an active member of the brand")
	}
	return s.repo.AddAssignment(ctx, conversationID, assigneeID)
}

// Unassign removes a brand team member from the conversation.
func (s *Service) Unassign(ctx context.Context, conversationID, assigneeID uuid.UUID, actor *user.User) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.verifyParticipant(ctx, conv, actor); err != nil {
		return err
	}
	return s.repo.RemoveAssignment(ctx, conversationID, assigneeID)
}

// Assignments lists the brand team members routed to the conversation.
func (s *Service) Assignments(ctx context.Context, conversationID uuid.UUID, actor *user.User) ([]*domain.Assignment, error) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyParticipant(ctx, conv, actor); err != nil {
		return nil, err
	}
	return s.repo.ListAssignments(ctx, conversationID)
}

// verifyParticipant dispatches on role: creators must own the creator side,
// brand users must be active members of the brand side, admins pass.
func (s *Service) verifyParticipant(ctx context.Context, conv *domain.Conversation, u *user.User) error {
	if u == nil {
		return apperror.Forbidden("authentication required")
	}
	switch u.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleCreator:
		p, err := s.creatorRepo.GetByUserID(ctx, u.UserID)
		if err != nil {
			return err
		}
		if p == nil || p.CreatorID != conv.CreatorID {
			return apperror.Forbidden("not a participant in this conversation")
		}
		return nil
	case user.RoleBrand:
		m, err := s.brandRepo.GetMember(ctx, conv.BrandID, u.UserID)
		if err != nil {
			return err
		}
		if m == nil || !m.IsActive {
			return apperror.Forbidden("not a participant in this conversation")
		}
		return nil
	default:
		return apperror.Forbidden("not a participant in this conversation")
	}
}

func (s *Service) getConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperror.NotFound("conversation not found")
	}
	return conv, nil
}

// notifyOffline sends a MESSAGE_RECEIVED notification to the other side of
// the conversation.
func (s *Service) notifyOffline(ctx context.Context, conv *domain.Conversation, sender *user.User) {
	link := "/messages/" + conv.ConversationID.String()
	title := "New message"

	if sender.Role == user.RoleCreator {
		members, err := s.brandRepo.ListMembers(ctx, conv.BrandID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to resolve brand members for message notification")
			return
		}
		for _, m := range members {
			if !m.IsActive || m.UserID == sender.UserID {
				continue
			}
			s.notifier.Notify(ctx, m.UserID, notification.TypeMessageReceived, title, appNotification.Input{Link: &link})
		}
		return
	}

	p, err := s.creatorRepo.GetByID(ctx, conv.CreatorID)
	if err != nil || p == nil {
		s.logger.Error().Err(err).Msg("failed to resolve creator for message notification")
		return
	}
	if p.UserID != sender.UserID {
		s.notifier.Notify(ctx, p.UserID, notification.TypeMessageReceived, title, appNotification.Input{Link: &link})
	}
}
