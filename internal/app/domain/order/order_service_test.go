package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/domain/shop"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

// MockOrderRepo is a mock implementation of Repository
type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
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

// MockShopRepo is a mock implementation of shop.Repository
type MockShopRepo struct {
	mock.Mock
}

func (m *MockShopRepo) Create(ctx context.Context, params shop.CreateShopParams) (*models.Shop, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shop), args.Error(1)
}

func (m *MockShopRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shop), args.Error(1)
}

func (m *MockShopRepo) List(ctx context.Context, filter models.ShopFilter) ([]models.Shop, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Shop), args.Int(1), args.Error(2)
}

func (m *MockShopRepo) Update(ctx context.Context, id uuid.UUID, params shop.UpdateShopParams) (*models.Shop, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shop), args.Error(1)
}

func newTestOrderService(repo Repository, shopRepo shop.Repository) *ServiceImpl {
	return NewService(repo, shopRepo, auditlog.NopRecorder{}, zap.NewNop())
}

func TestOrderTotal(t *testing.T) {
	items := []models.OrderItem{
		{ProductName: "Widget", Quantity: 3, UnitPrice: 10.50},
		{ProductName: "Gadget", Quantity: 2, UnitPrice: 4.25},
	}
	assert.InDelta(t, 40.0, orderTotal(items), 0.001)
}

func TestCreateComputesTotalServerSide(t *testing.T) {
	repo := new(MockOrderRepo)
	shopRepo := new(MockShopRepo)
	shopID := uuid.New()
	repID := uuid.New()

	shopRepo.On("GetByID", mock.Anything, shopID).Return(&models.Shop{ID: shopID}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p CreateOrderParams) bool {
		return p.TotalAmount == 25.0 && p.CreatedBy == repID
	})).Return(&models.Order{ID: uuid.New(), TotalAmount: 25.0, Status: models.OrderStatusPending}, nil)

	svc := newTestOrderService(repo, shopRepo)
	order, err := svc.Create(context.Background(), repID, shopID, []models.OrderItem{
		{ProductName: "Widget", Quantity: 5, UnitPrice: 5.0},
	})

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	repo.AssertExpectations(t)
	shopRepo.AssertExpectations(t)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := newTestOrderService(new(MockOrderRepo), new(MockShopRepo))

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestOrderService(new(MockOrderRepo), new(MockShopRepo))

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), []models.OrderItem{
		{ProductName: "Widget", Quantity: 0, UnitPrice: 5.0},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateUnknownShop(t *testing.T) {
	repo := new(MockOrderRepo)
	shopRepo := new(MockShopRepo)
	shopID := uuid.New()
	shopRepo.On("GetByID", mock.Anything, shopID).Return(nil, models.ErrNotFound)

	svc := newTestOrderService(repo, shopRepo)
	_, err := svc.Create(context.Background(), uuid.New(), shopID, []models.OrderItem{
		{ProductName: "Widget", Quantity: 1, UnitPrice: 5.0},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetByIDRepCannotSeeOthersOrder(t *testing.T) {
	repo := new(MockOrderRepo)
	orderID := uuid.New()
	repo.On("GetByID", mock.Anything, orderID).Return(&models.Order{
		ID:        orderID,
		CreatedBy: uuid.New(),
	}, nil)

	svc := newTestOrderService(repo, new(MockShopRepo))
	_, err := svc.GetByID(context.Background(), models.RoleRep, uuid.New(), orderID)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestListRepPinnedToOwnOrders(t *testing.T) {
	repo := new(MockOrderRepo)
	repID := uuid.New()
	other := uuid.New()
	repo.On("List", mock.Anything, mock.MatchedBy(func(f models.OrderFilter) bool {
		return f.CreatedBy != nil && *f.CreatedBy == repID
	})).Return([]models.Order{}, 0, nil)

	svc := newTestOrderService(repo, new(MockShopRepo))
	// The rep asked for another rep's orders; the filter gets overwritten.
	_, _, err := svc.List(context.Background(), models.RoleRep, repID, models.OrderFilter{CreatedBy: &other})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarkDeliveredOwnOrder(t *testing.T) {
	repo := new(MockOrderRepo)
	repID := uuid.New()
	orderID := uuid.New()

	repo.On("GetByID", mock.Anything, orderID).Return(&models.Order{ID: orderID, CreatedBy: repID, Status: models.OrderStatusPending}, nil)
	repo.On("UpdateStatus", mock.Anything, orderID, models.OrderStatusDelivered).
		Return(&models.Order{ID: orderID, Status: models.OrderStatusDelivered}, nil)

	svc := newTestOrderService(repo, new(MockShopRepo))
	order, err := svc.MarkDelivered(context.Background(), models.RoleRep, repID, orderID)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	repo.AssertExpectations(t)
}

func TestCancelClosedOrderRejected(t *testing.T) {
	repo := new(MockOrderRepo)
	orderID := uuid.New()
	repo.On("UpdateStatus", mock.Anything, orderID, models.OrderStatusCancelled).
		Return(nil, models.ErrOrderClosed)

	svc := newTestOrderService(repo, new(MockShopRepo))
	_, err := svc.Cancel(context.Background(), models.RoleAdmin, uuid.New(), orderID)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrOrderClosed)
}
