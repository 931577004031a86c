package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/brand"
	"github.com/collabify/collabify/internal/domain/creator"
	"github.com/collabify/collabify/internal/domain/session"
	"github.com/collabify/collabify/internal/domain/subscription"
	"github.com/collabify/collabify/internal/domain/user"
)

// Service handles registration, login and session validation.
type Service struct {
	userRepo         user.Repository
	sessionRepo      session.Repository
	brandRepo        brand.Repository
	creatorRepo      creator.Repository
	subscriptionRepo subscription.Repository
	sessionTTL       time.Duration
	logger           zerolog.Logger
}

// NewService creates an auth service.
func NewService(userRepo user.Repository, sessionRepo session.Repository, brandRepo brand.Repository, creatorRepo creator.Repository, subscriptionRepo subscription.Repository, sessionTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		userRepo:         userRepo,
		sessionRepo:      sessionRepo,
		brandRepo:        brandRepo,
		creatorRepo:      creatorRepo,
		subscriptionRepo: subscriptionRepo,
		sessionTTL:       sessionTTL,
		logger:           logger.With().Str("service", "auth").Logger(),
	}
}

// RegisterInput defines registration input. BrandName creates a brand org for
// BRAND users; DisplayName creates a creator profile for CREATOR users.
type RegisterInput struct {
	Email       string
	Password    string
	Role        user.Role
	FirstName   string
	LastName    string
	BrandName   string
	DisplayName string
}

// RegisterResult contains the created account and its role-specific entity.
type RegisterResult struct {
	User    *user.User
	Brand   *brand.Brand
	Creator *creator.Profile
}

// Register creates a user account plus a brand (with OWNER membership and a
// FREE subscription) or a creator profile, depending on role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := user.NormalizeEmail(input.Email)
	if err := user.ValidateEmail(email); err != nil {
		return nil, apperror.InvalidInput("%s", err.Error())
	}
	if err := user.ValidatePassword(input.Password); err != nil {
		return nil, apperror.InvalidInput("%s", err.Error())
	}
	if err := user.ValidateRole(input.Role); err != nil {
		return nil, apperror.InvalidInput("%s", err.Error())
	}
	if input.Role == user.RoleBrand && strings.TrimSpace(input.BrandName) == "" {
		return nil, apperror.InvalidInput("brand name is required")
	}
	if input.Role == user.RoleCreator && strings.TrimSpace(input.DisplayName) == "" {
		return nil, apperror.InvalidInput("display name is required")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("email already registered")
	}

	hash, err := user.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &user.User{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Status:       user.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	result := &RegisterResult{User: u}
	switch input.Role {
	case user.RoleBrand:
		b := &brand.Brand{
			BrandID:   uuid.New(),
			Name:      strings.TrimSpace(input.BrandName),
			Slug:      Slugify(input.BrandName),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.brandRepo.Create(ctx, b); err != nil {
			return nil, err
		}
		if err := s.brandRepo.AddMember(ctx, &brand.Member{
			BrandID:   b.BrandID,
			UserID:    u.UserID,
			Role:      brand.MemberRoleOwner,
			IsActive:  true,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		if err := s.subscriptionRepo.Upsert(ctx, &subscription.Subscription{
			BrandID:   b.BrandID,
			Tier:      subscription.TierFree,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
		result.Brand = b
	case user.RoleCreator:
		p := &creator.Profile{
			CreatorID:          uuid.New(),
			UserID:             u.UserID,
			DisplayName:        strings.TrimSpace(input.DisplayName),
			Slug:               Slugify(input.DisplayName),
			Categories:         []string{},
			Platforms:          []string{},
			VerificationStatus: creator.VerificationPending,
			IsAvailable:        true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.creatorRepo.Create(ctx, p); err != nil {
			return nil, err
		}
		result.Creator = p
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Str("role", string(u.Role)).Msg("user registered")
	return result, nil
}

// LoginResult contains login response.
type LoginResult struct {
	User    *user.User
	Session *session.Session
	Token   string
}

// Login authenticates a user and creates a session. Brand users get the
// session scoped to their brand.
func (s *Service) Login(ctx context.Context, email, password string, userAgent, ipAddress *string) (*LoginResult, error) {
	email = user.NormalizeEmail(email)
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !user.VerifyPassword(u.PasswordHash, password) {
		return nil, apperror.Forbidden("invalid email or password")
	}
	if !u.IsActive() {
		return nil, apperror.Forbidden("account is disabled")
	}

	var brandID *uuid.UUID
	if u.Role == user.RoleBrand {
		brandID, err = s.brandIDForUser(ctx, u.UserID)
		if err != nil {
			return nil, err
		}
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &session.Session{
		SessionID:  uuid.New(),
		TokenHash:  HashToken(token),
		UserID:     u.UserID,
		BrandID:    brandID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
		LastSeenAt: &now,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Msg("user login")
	return &LoginResult{User: u, Session: sess, Token: token}, nil
}

// Authenticate validates a session token and returns the user and session.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, *session.Session, error) {
	if token == "" {
		return nil, nil, apperror.Forbidden("missing token")
	}
	sess, err := s.sessionRepo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, apperror.Forbidden("session not found")
	}
	if sess.IsExpired(time.Now().UTC()) {
		_ = s.sessionRepo.DeleteByID(ctx, sess.SessionID)
		return nil, nil, apperror.Forbidden("session expired")
	}
	u, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || !u.IsActive() {
		return nil, nil, apperror.Forbidden("user not active")
	}
	_ = s.sessionRepo.UpdateLastSeen(ctx, sess.SessionID)
	return u, sess, nil
}

// Logout deletes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteByTokenHash(ctx, HashToken(token))
}

func (s *Service) brandIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	// A brand user belongs to one brand team today. The membership row is
	// created at registration, so a missing row means a disabled account.
	members, err := s.brandRepo.ListMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.IsActive {
			id := m.BrandID
			return &id, nil
		}
	}
	return nil, apperror.Forbidden("no active brand membership")
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken derives the storage key for a session token. Raw tokens are never
// persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Slugify lowercases a name and collapses non-alphanumerics to hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
