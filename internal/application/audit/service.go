package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabify/collabify/internal/domain/audit"
)

// Service handles audit log operations.
type Service struct {
	repo   audit.Repository
	logger zerolog.Logger
}

// NewService creates an audit service.
func NewService(repo audit.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "audit").Logger(),
	}
}

// Record writes an audit entry asynchronously. A failed write is logged and
// never affects the caller.
func (s *Service) Record(entityType, entityID string, action audit.Action, actorID *uuid.UUID, metadata interface{}) {
	var raw json.RawMessage
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err != nil {
			s.logger.Error().Err(err).Str("entityType", entityType).Msg("failed to marshal audit metadata")
		} else {
			raw = data
		}
	}
	entry := &audit.Entry{
		AuditID:    uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Metadata:   raw,
		CreatedAt:  time.Now().UTC(),
	}
	go func() {
		if err := s.repo.Create(context.Background(), entry); err != nil {
			s.logger.Error().Err(err).
				Str("entityType", entry.EntityType).
				Str("entityId", entry.EntityID).
				Str("action", string(entry.Action)).
				Msg("failed to create audit entry")
		}
	}()
}

// Query retrieves audit entries matching the filter, newest first.
func (s *Service) Query(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, filter, limit, offset)
}
