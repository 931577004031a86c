package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	appAudit "github.com/collabify/collabify/internal/application/audit"
	appNotification "github.com/collabify/collabify/internal/application/notification"
	"github.com/collabify/collabify/internal/domain/apperror"
	"github.com/collabify/collabify/internal/domain/audit"
	"github.com/collabify/collabify/internal/domain/brand"
	domain "github.com/collabify/collabify/internal/domain/chat"
	"github.com/collabify/collabify/internal/domain/creator"
	"github.com/collabify/collabify/internal/domain/notification"
	notificationmocks "github.com/collabify/collabify/internal/domain/notification/mocks"
	"github.com/collabify/collabify/internal/domain/subscription"
	"github.com/collabify/collabify/internal/domain/user"
)

// MockRepository is a mock implementation of chat.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetOrCreateConversation(ctx context.Context, brandID, creatorID uuid.UUID, campaignID *uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, brandID, creatorID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockRepository) GetConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockRepository) ListInbox(ctx context.Context, userID uuid.UUID, filter domain.InboxFilter) ([]*domain.InboxEntry, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InboxEntry), args.Error(1)
}

func (m *MockRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, int, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Message), args.Int(1), args.Error(2)
}

func (m *MockRepository) LatestMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockRepository) UpsertReadReceipt(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) error {
	args := m.Called(ctx, conversationID, userID, readAt)
	return args.Error(0)
}

func (m *MockRepository) GetReadReceipt(ctx context.Context, conversationID, userID uuid.UUID) (*domain.ReadReceipt, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReadReceipt), args.Error(1)
}

func (m *MockRepository) AddAssignment(ctx context.Context, conversationID, userID uuid.UUID) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockRepository) RemoveAssignment(ctx context.Context, conversationID, userID uuid.UUID) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockRepository) ListAssignments(ctx context.Context, conversationID uuid.UUID) ([]*domain.Assignment, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Assignment), args.Error(1)
}

// MockBrandRepository is a mock implementation of brand.Repository
type MockBrandRepository struct {
	mock.Mock
}

func (m *MockBrandRepository) Create(ctx context.Context, b *brand.Brand) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBrandRepository) Update(ctx context.Context, b *brand.Brand) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBrandRepository) GetByID(ctx context.Context, brandID uuid.UUID) (*brand.Brand, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brand.Brand), args.Error(1)
}

func (m *MockBrandRepository) GetBySlug(ctx context.Context, slug string) (*brand.Brand, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brand.Brand), args.Error(1)
}

func (m *MockBrandRepository) AddMember(ctx context.Context, mem *brand.Member) error {
	args := m.Called(ctx, mem)
	return args.Error(0)
}

func (m *MockBrandRepository) GetMember(ctx context.Context, brandID, userID uuid.UUID) (*brand.Member, error) {
	args := m.Called(ctx, brandID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brand.Member), args.Error(1)
}

func (m *MockBrandRepository) ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]*brand.Member, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*brand.Member), args.Error(1)
}

func (m *MockBrandRepository) ListMembers(ctx context.Context, brandID uuid.UUID) ([]*brand.Member, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*brand.Member), args.Error(1)
}

func (m *MockBrandRepository) CountActiveMembers(ctx context.Context, brandID uuid.UUID) (int, error) {
	args := m.Called(ctx, brandID)
	return args.Int(0), args.Error(1)
}

func (m *MockBrandRepository) SetMemberActive(ctx context.Context, brandID, userID uuid.UUID, active bool) error {
	args := m.Called(ctx, brandID, userID, active)
	return args.Error(0)
}

// MockCreatorRepository is a mock implementation of creator.Repository
type MockCreatorRepository struct {
	mock.Mock
}

func (m *MockCreatorRepository) Create(ctx context.Context, p *creator.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockCreatorRepository) Update(ctx context.Context, p *creator.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockCreatorRepository) GetByID(ctx context.Context, creatorID uuid.UUID) (*creator.Profile, error) {
	args := m.Called(ctx, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creator.Profile), args.Error(1)
}

func (m *MockCreatorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*creator.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creator.Profile), args.Error(1)
}

func (m *MockCreatorRepository) GetBySlug(ctx context.Context, slug string) (*creator.Profile, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creator.Profile), args.Error(1)
}

// stubFeatures returns the same feature set for every brand.
type stubFeatures struct {
	features subscription.Features
}

func (s stubFeatures) FeaturesForBrand(ctx context.Context, brandID uuid.UUID) (subscription.Features, error) {
	return s.features, nil
}

// noopAuditRepo absorbs async audit writes so tests never race on a mock.
type noopAuditRepo struct{}

func (noopAuditRepo) Create(ctx context.Context, e *audit.Entry) error { return nil }
func (noopAuditRepo) List(ctx context.Context, f audit.Filter, limit, offset int) ([]*audit.Entry, error) {
	return nil, nil
}

type testEnv struct {
	repo        *MockRepository
	brandRepo   *MockBrandRepository
	creatorRepo *MockCreatorRepository
	sseHub      *notificationmocks.MockSSEHub
	svc         *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := new(MockRepository)
	brandRepo := new(MockBrandRepository)
	creatorRepo := new(MockCreatorRepository)
	ctrl := gomock.NewController(t)
	sseHub := notificationmocks.NewMockSSEHub(ctrl)
	notifRepo := notificationmocks.NewMockRepository(ctrl)
	notifRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	sseHub.EXPECT().BroadcastToUser(gomock.Any(), gomock.Any()).AnyTimes()

	notifier := appNotification.NewService(notifRepo, sseHub, zerolog.Nop())
	auditSvc := appAudit.NewService(noopAuditRepo{}, zerolog.Nop())
	svc := NewService(repo, brandRepo, creatorRepo, stubFeatures{features: subscription.PlanFeatures[subscription.TierPro]}, sseHub, notifier, auditSvc, zerolog.Nop())
	return &testEnv{repo: repo, brandRepo: brandRepo, creatorRepo: creatorRepo, sseHub: sseHub, svc: svc}
}

func brandUser(userID uuid.UUID) *user.User {
	return &user.User{UserID: userID, Email: "brand@example.com", Role: user.RoleBrand}
}

func creatorUser(userID uuid.UUID) *user.User {
	return &user.User{UserID: userID, Email: "creator@example.com", Role: user.RoleCreator}
}

func conversation(brandID, creatorID uuid.UUID) *domain.Conversation {
	now := time.Now().UTC()
	return &domain.Conversation{
		ConversationID: uuid.New(),
		BrandID:        brandID,
		CreatorID:      creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func activeMember(brandID, userID uuid.UUID) *brand.Member {
	return &brand.Member{BrandID: brandID, UserID: userID, Role: brand.MemberRoleOwner, IsActive: true}
}

func TestRoom(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "conversation:"+id.String(), Room(id))
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("resolves the conversation for the identity triple", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		env.brandRepo.On("GetByID", ctx, brandID).Return(&brand.Brand{BrandID: brandID}, nil)
		env.creatorRepo.On("GetByID", ctx, creatorID).Return(&creator.Profile{CreatorID: creatorID}, nil)
		env.repo.On("GetOrCreateConversation", ctx, brandID, creatorID, (*uuid.UUID)(nil)).Return(conv, nil)

		out, err := env.svc.Start(ctx, StartInput{BrandID: brandID, CreatorID: creatorID, StartedBy: creatorUser(uuid.New())})
		require.NoError(t, err)
		assert.Equal(t, conv, out)
	})

	t.Run("brand-initiated start is gated by plan features", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.features = stubFeatures{features: subscription.PlanFeatures[subscription.TierFree]}

		_, err := env.svc.Start(ctx, StartInput{BrandID: brandID, CreatorID: creatorID, StartedBy: brandUser(uuid.New())})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("unknown creator is not found", func(t *testing.T) {
		env := newTestEnv(t)
		env.brandRepo.On("GetByID", ctx, brandID).Return(&brand.Brand{BrandID: brandID}, nil)
		env.creatorRepo.On("GetByID", ctx, creatorID).Return(nil, nil)

		_, err := env.svc.Start(ctx, StartInput{BrandID: brandID, CreatorID: creatorID, StartedBy: creatorUser(uuid.New())})
		require.Error(t, err)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("broadcasts message:new to the conversation room", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		senderID := uuid.New()
		sender := creatorUser(senderID)

		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.creatorRepo.On("GetByUserID", ctx, senderID).Return(&creator.Profile{CreatorID: creatorID, UserID: senderID}, nil)
		env.repo.On("CreateMessage", ctx, mock.AnythingOfType("*chat.Message")).Return(nil)
		env.sseHub.EXPECT().BroadcastToRoom(Room(conv.ConversationID), gomock.Cond(func(msg *notification.SSEMessage) bool {
			return msg.Event == "message:new"
		}))
		env.brandRepo.On("ListMembers", ctx, brandID).Return([]*brand.Member{}, nil)

		m, err := env.svc.Send(ctx, SendInput{
			ConversationID: conv.ConversationID,
			Sender:         sender,
			Content:        "  hey, loved the brief  ",
		})
		require.NoError(t, err)
		assert.Equal(t, "hey, loved the brief", m.Content)
		assert.Equal(t, senderID, m.SenderID)
	})

	t.Run("requires content or an attachment", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Send(ctx, SendInput{ConversationID: uuid.New(), Sender: creatorUser(uuid.New()), Content: "   "})
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})

	t.Run("caps message length", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Send(ctx, SendInput{
			ConversationID: uuid.New(),
			Sender:         creatorUser(uuid.New()),
			Content:        strings.Repeat("a", MaxMessageLength+1),
		})
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})

	t.Run("brand sender is gated by plan features", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.features = stubFeatures{features: subscription.PlanFeatures[subscription.TierFree]}
		conv := conversation(brandID, creatorID)
		senderID := uuid.New()
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.brandRepo.On("GetMember", ctx, brandID, senderID).Return(activeMember(brandID, senderID), nil)

		_, err := env.svc.Send(ctx, SendInput{ConversationID: conv.ConversationID, Sender: brandUser(senderID), Content: "hi"})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("non-participant creator is refused", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		senderID := uuid.New()
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.creatorRepo.On("GetByUserID", ctx, senderID).Return(&creator.Profile{CreatorID: uuid.New(), UserID: senderID}, nil)

		_, err := env.svc.Send(ctx, SendInput{ConversationID: conv.ConversationID, Sender: creatorUser(senderID), Content: "hi"})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("inactive brand member is refused", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		senderID := uuid.New()
		m := activeMember(brandID, senderID)
		m.IsActive = false
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.brandRepo.On("GetMember", ctx, brandID, senderID).Return(m, nil)

		_, err := env.svc.Send(ctx, SendInput{ConversationID: conv.ConversationID, Sender: brandUser(senderID), Content: "hi"})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("admin bypasses participant checks", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		admin := &user.User{UserID: uuid.New(), Role: user.RoleAdmin}

		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.repo.On("CreateMessage", ctx, mock.Anything).Return(nil)
		env.sseHub.EXPECT().BroadcastToRoom(gomock.Any(), gomock.Any())
		env.creatorRepo.On("GetByID", ctx, creatorID).Return(nil, nil)

		_, err := env.svc.Send(ctx, SendInput{ConversationID: conv.ConversationID, Sender: admin, Content: "moderation note"})
		require.NoError(t, err)
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("upserts the receipt and broadcasts message:read", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		userID := uuid.New()
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.creatorRepo.On("GetByUserID", ctx, userID).Return(&creator.Profile{CreatorID: creatorID, UserID: userID}, nil)
		env.repo.On("UpsertReadReceipt", ctx, conv.ConversationID, userID, mock.AnythingOfType("time.Time")).Return(nil)
		env.sseHub.EXPECT().BroadcastToRoom(Room(conv.ConversationID), gomock.Cond(func(msg *notification.SSEMessage) bool {
			return msg.Event == "message:read"
		}))

		err := env.svc.MarkRead(ctx, conv.ConversationID, creatorUser(userID))
		require.NoError(t, err)
	})
}

func TestTyping(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("broadcasts a transient typing event", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		userID := uuid.New()
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.creatorRepo.On("GetByUserID", ctx, userID).Return(&creator.Profile{CreatorID: creatorID, UserID: userID}, nil)
		env.sseHub.EXPECT().BroadcastToRoom(Room(conv.ConversationID), gomock.Cond(func(msg *notification.SSEMessage) bool {
			return msg.Event == "message:typing"
		}))

		err := env.svc.Typing(ctx, conv.ConversationID, creatorUser(userID))
		require.NoError(t, err)
		env.repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})
}

func TestInbox(t *testing.T) {
	ctx := context.Background()

	t.Run("creator inbox is scoped to the creator profile", func(t *testing.T) {
		env := newTestEnv(t)
		userID := uuid.New()
		creatorID := uuid.New()
		env.creatorRepo.On("GetByUserID", ctx, userID).Return(&creator.Profile{CreatorID: creatorID, UserID: userID}, nil)
		env.repo.On("ListInbox", ctx, userID, mock.MatchedBy(func(f domain.InboxFilter) bool {
			return f.CreatorID != nil && *f.CreatorID == creatorID && f.BrandID == nil
		})).Return([]*domain.InboxEntry{}, nil)

		_, err := env.svc.Inbox(ctx, creatorUser(userID), domain.InboxFilter{})
		require.NoError(t, err)
		env.repo.AssertExpectations(t)
	})

	t.Run("brand inbox requires brand scope", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Inbox(ctx, brandUser(uuid.New()), domain.InboxFilter{})
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})
}

func TestAssign(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("assigns an active brand member", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		actorID := uuid.New()
		assigneeID := uuid.New()
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.brandRepo.On("GetMember", ctx, brandID, actorID).Return(activeMember(brandID, actorID), nil)
		env.brandRepo.On("GetMember", ctx, brandID, assigneeID).Return(activeMember(brandID, assigneeID), nil)
		env.repo.On("AddAssignment", ctx, conv.ConversationID, assigneeID).Return(nil)

		err := env.svc.Assign(ctx, conv.ConversationID, assigneeID, brandUser(actorID))
		require.NoError(t, err)
	})

	t.Run("refuses an inactive assignee", func(t *testing.T) {
		env := newTestEnv(t)
		conv := conversation(brandID, creatorID)
		actorID := uuid.New()
		assigneeID := uuid.New()
		inactive := activeMember(brandID, assigneeID)
		inactive.IsActive = false
		env.repo.On("GetConversation", ctx, conv.ConversationID).Return(conv, nil)
		env.brandRepo.On("GetMember", ctx, brandID, actorID).Return(activeMember(brandID, actorID), nil)
		env.brandRepo.On("GetMember", ctx, brandID, assigneeID).Return(inactive, nil)

		err := env.svc.Assign(ctx, conv.ConversationID, assigneeID, brandUser(actorID))
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})
}
