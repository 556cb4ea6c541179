package collection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/domain/order"
	"github.com/fieldsale/fieldsale/internal/app/models"
	"github.com/fieldsale/fieldsale/internal/app/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Record(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, amount float64, method string) (*models.Collection, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	List(ctx context.Context, actorRole string, actorID uuid.UUID, filter models.CollectionFilter) ([]models.Collection, int, error)
	OrderBalance(ctx context.Context, orderID uuid.UUID) (*models.OrderBalance, error)
}

type ServiceImpl struct {
	repo      Repository
	orderRepo order.Repository
	audit     auditlog.Recorder
	logger    *zap.Logger
}

func NewService(repo Repository, orderRepo order.Repository, audit auditlog.Recorder, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:      repo,
		orderRepo: orderRepo,
		audit:     audit,
		logger:    logger,
	}
}

func validMethod(method string) bool {
	switch method {
	case models.PaymentCash, models.PaymentCheque, models.PaymentOnline:
		return true
	}
	return false
}

// Record implements collection.Service. Overpayment is rejected: a
// collection may not exceed the order's outstanding balance. The balance
// read here is a pre-check for a clean error; the repository re-checks it
// under a row lock before inserting.
func (s *ServiceImpl) Record(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, amount float64, method string) (*models.Collection, error) {
	l := s.logger.With(zap.String("method", "Record"), zap.String("orderID", orderID.String()))

	if amount <= 0 {
		return nil, fmt.Errorf("collection amount must be positive: %w", models.ErrValidation)
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("payment method must be cash, cheque or online: %w", models.ErrValidation)
	}

	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("cannot collect against a cancelled order: %w", models.ErrOrderClosed)
	}

	balance, err := s.repo.OrderBalance(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if amount > balance.Outstanding {
		return nil, fmt.Errorf("amount %.2f exceeds outstanding balance %.2f: %w",
			amount, balance.Outstanding, models.ErrValidation)
	}

	created, err := s.repo.Create(ctx, CreateCollectionParams{
		OrderID:     orderID,
		ShopID:      ord.ShopID,
		Amount:      amount,
		Method:      method,
		CollectedBy: actorID,
	})
	if err != nil {
		l.Error("Repository collection insert failed", zap.Error(err))
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.CollectionsRecordedTotal.Add(ctx, 1)
	}
	s.audit.Record(ctx, actorID, "collection_record", "collection", created.ID.String(), map[string]any{
		"order_id": orderID.String(),
		"amount":   amount,
		"method":   method,
	})

	l.Info("Collection recorded", zap.Float64("amount", amount), zap.String("paymentMethod", method))
	return created, nil
}

// GetByID implements collection.Service.
func (s *ServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	return s.repo.GetByID(ctx, id)
}

// List implements collection.Service. Reps only see their own collections.
func (s *ServiceImpl) List(ctx context.Context, actorRole string, actorID uuid.UUID, filter models.CollectionFilter) ([]models.Collection, int, error) {
	if actorRole == models.RoleRep {
		filter.CollectedBy = &actorID
	}
	collections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list collections", zap.Error(err))
		return nil, 0, err
	}
	return collections, total, nil
}

// OrderBalance implements collection.Service.
func (s *ServiceImpl) OrderBalance(ctx context.Context, orderID uuid.UUID) (*models.OrderBalance, error) {
	return s.repo.OrderBalance(ctx, orderID)
}
