package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabify/collabify/internal/domain/apperror"
	domain "github.com/collabify/collabify/internal/domain/notification"
)

// Service persists notifications and pushes them to live SSE connections.
// Notify is fire-and-forget: failures are logged and never abort the calling
// operation.
type Service struct {
	repo   domain.Repository
	sseHub domain.SSEHub
	logger zerolog.Logger
}

// NewService creates a notification service.
func NewService(repo domain.Repository, sseHub domain.SSEHub, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		sseHub: sseHub,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

// Input defines an optional body, link and metadata for a notification.
type Input struct {
	Body     *string
	Link     *string
	Metadata json.RawMessage
}

// Notify stores a notification and pushes a notification:new event to every
// live connection of the user.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, typ domain.Type, title string, input Input) {
	n := domain.New(userID, typ, title)
	n.Body = input.Body
	n.Link = input.Link
	n.Metadata = input.Metadata

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Str("type", string(typ)).Msg("failed to store notification")
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal notification")
		return
	}
	s.sseHub.BroadcastToUser(userID.String(), domain.NewSSEMessage("notification:new", data))
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

// CountUnread returns the user's unread notification count.
func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification read.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, notificationID, userID); err != nil {
		return apperror.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
