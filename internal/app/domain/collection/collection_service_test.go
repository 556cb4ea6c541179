package collection

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/domain/order"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

// MockCollectionRepo is a mock implementation of Repository
type MockCollectionRepo struct {
	mock.Mock
}

func (m *MockCollectionRepo) Create(ctx context.Context, params CreateCollectionParams) (*models.Collection, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collection), args.Error(1)
}

func (m *MockCollectionRepo) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Collection), args.Int(1), args.Error(2)
}

func (m *MockCollectionRepo) OrderBalance(ctx context.Context, orderID uuid.UUID) (*models.OrderBalance, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderBalance), args.Error(1)
}

// MockOrderRepo is a mock implementation of order.Repository
type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, params order.CreateOrderParams) (*models.Order, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func newTestCollectionService(repo Repository, orderRepo order.Repository) *ServiceImpl {
	return NewService(repo, orderRepo, auditlog.NopRecorder{}, zap.NewNop())
}

func TestRecordSuccess(t *testing.T) {
	repo := new(MockCollectionRepo)
	orderRepo := new(MockOrderRepo)
	orderID := uuid.New()
	shopID := uuid.New()
	repID := uuid.New()

	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, ShopID: shopID, Status: models.OrderStatusDelivered, TotalAmount: 100,
	}, nil)
	repo.On("OrderBalance", mock.Anything, orderID).Return(&models.OrderBalance{
		OrderID: orderID, TotalAmount: 100, Collected: 40, Outstanding: 60,
	}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p CreateCollectionParams) bool {
		return p.OrderID == orderID && p.ShopID == shopID && p.Amount == 60 && p.CollectedBy == repID
	})).Return(&models.Collection{ID: uuid.New(), Amount: 60}, nil)

	svc := newTestCollectionService(repo, orderRepo)
	got, err := svc.Record(context.Background(), repID, orderID, 60, models.PaymentCash)

	require.NoError(t, err)
	assert.Equal(t, 60.0, got.Amount)
	repo.AssertExpectations(t)
}

func TestRecordOverpaymentRejected(t *testing.T) {
	repo := new(MockCollectionRepo)
	orderRepo := new(MockOrderRepo)
	orderID := uuid.New()

	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, Status: models.OrderStatusDelivered, TotalAmount: 100,
	}, nil)
	repo.On("OrderBalance", mock.Anything, orderID).Return(&models.OrderBalance{
		OrderID: orderID, TotalAmount: 100, Collected: 80, Outstanding: 20,
	}, nil)

	svc := newTestCollectionService(repo, orderRepo)
	_, err := svc.Record(context.Background(), uuid.New(), orderID, 50, models.PaymentCash)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRecordAgainstCancelledOrderRejected(t *testing.T) {
	repo := new(MockCollectionRepo)
	orderRepo := new(MockOrderRepo)
	orderID := uuid.New()

	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{
		ID: orderID, Status: models.OrderStatusCancelled,
	}, nil)

	svc := newTestCollectionService(repo, orderRepo)
	_, err := svc.Record(context.Background(), uuid.New(), orderID, 10, models.PaymentCash)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrOrderClosed)
}

func TestRecordInvalidMethod(t *testing.T) {
	svc := newTestCollectionService(new(MockCollectionRepo), new(MockOrderRepo))

	_, err := svc.Record(context.Background(), uuid.New(), uuid.New(), 10, "barter")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRecordNonPositiveAmount(t *testing.T) {
	svc := newTestCollectionService(new(MockCollectionRepo), new(MockOrderRepo))

	_, err := svc.Record(context.Background(), uuid.New(), uuid.New(), 0, models.PaymentCash)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListRepPinnedToOwnCollections(t *testing.T) {
	repo := new(MockCollectionRepo)
	repID := uuid.New()
	repo.On("List", mock.Anything, mock.MatchedBy(func(f models.CollectionFilter) bool {
		return f.CollectedBy != nil && *f.CollectedBy == repID
	})).Return([]models.Collection{}, 0, nil)

	svc := newTestCollectionService(repo, new(MockOrderRepo))
	_, _, err := svc.List(context.Background(), models.RoleRep, repID, models.CollectionFilter{})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
