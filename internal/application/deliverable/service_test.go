package deliverable

import (
	"context"
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
	domain "github.com/collabify/collabify/internal/domain/contract"
	"github.com/collabify/collabify/internal/domain/creator"
	notificationmocks "github.com/collabify/collabify/internal/domain/notification/mocks"
)

// MockRepository is a mock implementation of contract.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter domain.Filter, limit, offset int) ([]*domain.Contract, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contract), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, filter domain.Filter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, c *domain.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) GetDeliverableByID(ctx context.Context, deliverableID uuid.UUID) (*domain.Deliverable, error) {
	args := m.Called(ctx, deliverableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deliverable), args.Error(1)
}

func (m *MockRepository) ListDeliverables(ctx context.Context, contractID uuid.UUID) ([]*domain.Deliverable, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Deliverable), args.Error(1)
}

func (m *MockRepository) ListSubmissions(ctx context.Context, deliverableID uuid.UUID) ([]*domain.Submission, error) {
	args := m.Called(ctx, deliverableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Submission), args.Error(1)
}

func (m *MockRepository) ListReviews(ctx context.Context, deliverableID uuid.UUID) ([]*domain.Review, error) {
	args := m.Called(ctx, deliverableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockRepository) SubmitDeliverable(ctx context.Context, sub *domain.Submission, contractID uuid.UUID) error {
	args := m.Called(ctx, sub, contractID)
	return args.Error(0)
}

func (m *MockRepository) ReviewDeliverable(ctx context.Context, rev *domain.Review, newStatus domain.DeliverableStatus, contractID uuid.UUID) (bool, error) {
	args := m.Called(ctx, rev, newStatus, contractID)
	return args.Bool(0), args.Error(1)
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
	svc         *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := new(MockRepository)
	brandRepo := new(MockBrandRepository)
	creatorRepo := new(MockCreatorRepository)
	ctrl := gomock.NewController(t)
	notifRepo := notificationmocks.NewMockRepository(ctrl)
	sseHub := notificationmocks.NewMockSSEHub(ctrl)
	notifRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	sseHub.EXPECT().BroadcastToUser(gomock.Any(), gomock.Any()).AnyTimes()

	notifier := appNotification.NewService(notifRepo, sseHub, zerolog.Nop())
	auditSvc := appAudit.NewService(noopAuditRepo{}, zerolog.Nop())
	svc := NewService(repo, brandRepo, creatorRepo, notifier, auditSvc, zerolog.Nop())
	return &testEnv{repo: repo, brandRepo: brandRepo, creatorRepo: creatorRepo, svc: svc}
}

func activeContract(brandID, creatorID uuid.UUID) *domain.Contract {
	now := time.Now().UTC()
	return &domain.Contract{
		ContractID:     uuid.New(),
		ApplicationID:  uuid.New(),
		CampaignID:     uuid.New(),
		BrandID:        brandID,
		CreatorID:      creatorID,
		Status:         domain.StatusActive,
		PriceInCents:   60000,
		CommissionRate: 0.15,
		Deliverables:   []string{"1 reel", "3 stories"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func pendingDeliverable(contractID, creatorID uuid.UUID) *domain.Deliverable {
	now := time.Now().UTC()
	return &domain.Deliverable{
		DeliverableID: uuid.New(),
		ContractID:    contractID,
		CreatorID:     creatorID,
		Title:         "1 reel",
		Status:        domain.DeliverablePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func strptr(s string) *string { return &s }

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("first submission gets version 1", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		d := pendingDeliverable(c.ContractID, creatorID)

		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("SubmitDeliverable", ctx, mock.AnythingOfType("*contract.Submission"), c.ContractID).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.Submission).Version = 1 }).
			Return(nil)
		env.brandRepo.On("ListMembers", ctx, brandID).Return([]*brand.Member{}, nil)

		sub, err := env.svc.Submit(ctx, SubmitInput{
			DeliverableID: d.DeliverableID,
			CreatorID:     creatorID,
			LinkURL:       strptr("https://example.com/reel"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sub.Version)
	})

	t.Run("resubmission after changes requested gets the next version", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		c.Status = domain.StatusDelivering
		d := pendingDeliverable(c.ContractID, creatorID)
		d.Status = domain.DeliverableChangesRequested

		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("SubmitDeliverable", ctx, mock.Anything, c.ContractID).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.Submission).Version = 3 }).
			Return(nil)
		env.brandRepo.On("ListMembers", ctx, brandID).Return([]*brand.Member{}, nil)

		sub, err := env.svc.Submit(ctx, SubmitInput{
			DeliverableID: d.DeliverableID,
			CreatorID:     creatorID,
			FileURL:       strptr("https://cdn.example.com/v3.mp4"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, sub.Version)
	})

	t.Run("racing submission for the same version conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		d := pendingDeliverable(c.ContractID, creatorID)

		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("SubmitDeliverable", ctx, mock.Anything, c.ContractID).Return(domain.ErrDuplicate)

		_, err := env.svc.Submit(ctx, SubmitInput{
			DeliverableID: d.DeliverableID,
			CreatorID:     creatorID,
			LinkURL:       strptr("https://example.com/reel"),
		})
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("requires a file or link", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Submit(ctx, SubmitInput{DeliverableID: uuid.New(), CreatorID: creatorID})
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})

	t.Run("refuses another creator's deliverable", func(t *testing.T) {
		env := newTestEnv(t)
		d := pendingDeliverable(uuid.New(), uuid.New())
		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)

		_, err := env.svc.Submit(ctx, SubmitInput{DeliverableID: d.DeliverableID, CreatorID: creatorID, LinkURL: strptr("x")})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("refuses a deliverable already in review", func(t *testing.T) {
		env := newTestEnv(t)
		d := pendingDeliverable(uuid.New(), creatorID)
		d.Status = domain.DeliverableSubmitted
		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)

		_, err := env.svc.Submit(ctx, SubmitInput{DeliverableID: d.DeliverableID, CreatorID: creatorID, LinkURL: strptr("x")})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("refuses submission on a closed contract", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		c.Status = domain.StatusCancelled
		d := pendingDeliverable(c.ContractID, creatorID)
		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)

		_, err := env.svc.Submit(ctx, SubmitInput{DeliverableID: d.DeliverableID, CreatorID: creatorID, LinkURL: strptr("x")})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})
}

func TestReview(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()
	reviewerID := uuid.New()

	submitted := func(c *domain.Contract) *domain.Deliverable {
		d := pendingDeliverable(c.ContractID, creatorID)
		d.Status = domain.DeliverableSubmitted
		return d
	}

	t.Run("approval of the last deliverable completes the contract", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		c.Status = domain.StatusInReview
		d := submitted(c)

		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("ReviewDeliverable", ctx, mock.AnythingOfType("*contract.Review"), domain.DeliverableApproved, c.ContractID).Return(true, nil)
		env.creatorRepo.On("GetByID", ctx, creatorID).Return(nil, nil)

		res, err := env.svc.Review(ctx, ReviewInput{
			DeliverableID: d.DeliverableID,
			BrandID:       brandID,
			ReviewerID:    reviewerID,
			Approved:      true,
		})
		require.NoError(t, err)
		assert.True(t, res.ContractCompleted)
		assert.Equal(t, domain.DeliverableApproved, res.Deliverable.Status)
		assert.True(t, res.Review.Approved)
	})

	t.Run("approval of an intermediate deliverable leaves the contract open", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		d := submitted(c)

		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("ReviewDeliverable", ctx, mock.Anything, domain.DeliverableApproved, c.ContractID).Return(false, nil)
		env.creatorRepo.On("GetByID", ctx, creatorID).Return(nil, nil)

		res, err := env.svc.Review(ctx, ReviewInput{
			DeliverableID: d.DeliverableID,
			BrandID:       brandID,
			ReviewerID:    reviewerID,
			Approved:      true,
		})
		require.NoError(t, err)
		assert.False(t, res.ContractCompleted)
	})

	t.Run("requesting changes requires feedback", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.Review(ctx, ReviewInput{
			DeliverableID: uuid.New(),
			BrandID:       brandID,
			ReviewerID:    reviewerID,
			Approved:      false,
			Feedback:      strptr("   "),
		})
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})

	t.Run("requesting changes flips the deliverable back", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		d := submitted(c)

		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("ReviewDeliverable", ctx, mock.Anything, domain.DeliverableChangesRequested, c.ContractID).Return(false, nil)
		env.creatorRepo.On("GetByID", ctx, creatorID).Return(nil, nil)

		res, err := env.svc.Review(ctx, ReviewInput{
			DeliverableID: d.DeliverableID,
			BrandID:       brandID,
			ReviewerID:    reviewerID,
			Approved:      false,
			Feedback:      strptr("audio levels are off"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DeliverableChangesRequested, res.Deliverable.Status)
	})

	t.Run("only submitted deliverables can be reviewed", func(t *testing.T) {
		env := newTestEnv(t)
		d := pendingDeliverable(uuid.New(), creatorID)
		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)

		_, err := env.svc.Review(ctx, ReviewInput{
			DeliverableID: d.DeliverableID,
			BrandID:       brandID,
			ReviewerID:    reviewerID,
			Approved:      true,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})

	t.Run("refuses another brand's contract", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(uuid.New(), creatorID)
		d := submitted(c)
		env.repo.On("GetDeliverableByID", ctx, d.DeliverableID).Return(d, nil)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)

		_, err := env.svc.Review(ctx, ReviewInput{
			DeliverableID: d.DeliverableID,
			BrandID:       brandID,
			ReviewerID:    reviewerID,
			Approved:      true,
		})
		require.Error(t, err)
		assert.True(t, apperror.IsForbidden(err))
	})
}

func TestUpdateContractStatus(t *testing.T) {
	ctx := context.Background()
	brandID := uuid.New()
	creatorID := uuid.New()

	t.Run("cancels an active contract and stamps cancelledAt", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)
		env.repo.On("UpdateStatus", ctx, c).Return(nil)

		updated, err := env.svc.UpdateContractStatus(ctx, c.ContractID, brandID, domain.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, updated.Status)
		assert.NotNil(t, updated.CancelledAt)
	})

	t.Run("completion is not reachable manually", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.svc.UpdateContractStatus(ctx, uuid.New(), brandID, domain.StatusCompleted)
		require.Error(t, err)
		assert.True(t, apperror.KindOf(err) == apperror.KindInvalidInput)
	})

	t.Run("rejects an invalid transition", func(t *testing.T) {
		env := newTestEnv(t)
		c := activeContract(brandID, creatorID)
		c.Status = domain.StatusCancelled
		env.repo.On("GetByID", ctx, c.ContractID).Return(c, nil)

		_, err := env.svc.UpdateContractStatus(ctx, c.ContractID, brandID, domain.StatusDisputed)
		require.Error(t, err)
		assert.True(t, apperror.IsInvalidState(err))
	})
}
