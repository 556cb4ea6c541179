package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/domain/shop"
	"github.com/fieldsale/fieldsale/internal/app/models"
	"github.com/fieldsale/fieldsale/internal/app/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, shopID uuid.UUID, items []models.OrderItem) (*models.Order, error)
	GetByID(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actorRole string, actorID uuid.UUID, filter models.OrderFilter) ([]models.Order, int, error)
	MarkDelivered(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error)
}

type ServiceImpl struct {
	repo     Repository
	shopRepo shop.Repository
	audit    auditlog.Recorder
	logger   *zap.Logger
}

func NewService(repo Repository, shopRepo shop.Repository, audit auditlog.Recorder, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		shopRepo: shopRepo,
		audit:    audit,
		logger:   logger,
	}
}

// orderTotal sums the line totals. The server recomputes this on every
// create; client-supplied totals are never trusted.
func orderTotal(items []models.OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("order must contain at least one item: %w", models.ErrValidation)
	}
	for i, item := range items {
		if item.ProductName == "" {
			return fmt.Errorf("item %d: product name is required: %w", i, models.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive: %w", i, models.ErrValidation)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("item %d: unit price cannot be negative: %w", i, models.ErrValidation)
		}
	}
	return nil
}

// Create implements order.Service.
func (s *ServiceImpl) Create(ctx context.Context, actorID uuid.UUID, shopID uuid.UUID, items []models.OrderItem) (*models.Order, error) {
	l := s.logger.With(zap.String("method", "Create"), zap.String("shopID", shopID.String()))

	tracer := otel.Tracer("fieldsale")
	ctx, span := tracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("shop.id", shopID.String()),
		attribute.Int("item.count", len(items)),
	))
	defer span.End()

	if err := validateItems(items); err != nil {
		span.SetStatus(codes.Error, "Invalid order items")
		return nil, err
	}

	// The shop must exist before an order can reference it.
	if _, err := s.shopRepo.GetByID(ctx, shopID); err != nil {
		span.SetStatus(codes.Error, "Unknown shop")
		return nil, err
	}

	created, err := s.repo.Create(ctx, CreateOrderParams{
		ShopID:      shopID,
		CreatedBy:   actorID,
		Items:       items,
		TotalAmount: orderTotal(items),
	})
	if err != nil {
		l.Error("Repository order creation failed", zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.OrdersCreatedTotal.Add(ctx, 1)
	}
	s.audit.Record(ctx, actorID, "order_create", "order", created.ID.String(), map[string]any{
		"shop_id": shopID.String(),
		"total":   created.TotalAmount,
	})

	l.Info("Order created", zap.String("orderID", created.ID.String()), zap.Float64("total", created.TotalAmount))
	span.SetStatus(codes.Ok, "Order created")
	return created, nil
}

// GetByID implements order.Service. Reps can only see their own orders.
func (s *ServiceImpl) GetByID(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole == models.RoleRep && order.CreatedBy != actorID {
		return nil, fmt.Errorf("order belongs to another user: %w", models.ErrForbidden)
	}
	return order, nil
}

// List implements order.Service. Reps are pinned to their own orders
// regardless of the requested filter.
func (s *ServiceImpl) List(ctx context.Context, actorRole string, actorID uuid.UUID, filter models.OrderFilter) ([]models.Order, int, error) {
	if actorRole == models.RoleRep {
		filter.CreatedBy = &actorID
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, 0, err
	}
	return orders, total, nil
}

// MarkDelivered implements order.Service.
func (s *ServiceImpl) MarkDelivered(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actorRole, actorID, id, models.OrderStatusDelivered, "order_deliver")
}

// Cancel implements order.Service.
func (s *ServiceImpl) Cancel(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actorRole, actorID, id, models.OrderStatusCancelled, "order_cancel")
}

func (s *ServiceImpl) transition(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID, status, action string) (*models.Order, error) {
	l := s.logger.With(zap.String("method", "transition"), zap.String("orderID", id.String()), zap.String("status", status))

	if actorRole == models.RoleRep {
		order, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if order.CreatedBy != actorID {
			return nil, fmt.Errorf("order belongs to another user: %w", models.ErrForbidden)
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		l.Warn("Order status transition rejected", zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, actorID, action, "order", id.String(), nil)
	l.Info("Order status updated")
	return updated, nil
}
