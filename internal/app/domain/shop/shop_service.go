package shop

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, params CreateShopParams) (*models.Shop, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	List(ctx context.Context, filter models.ShopFilter) ([]models.Shop, int, error)
	Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, params UpdateShopParams) (*models.Shop, error)
}

type ServiceImpl struct {
	repo   Repository
	audit  auditlog.Recorder
	logger *zap.Logger
}

func NewService(repo Repository, audit auditlog.Recorder, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// Create implements shop.Service.
func (s *ServiceImpl) Create(ctx context.Context, actorID uuid.UUID, params CreateShopParams) (*models.Shop, error) {
	l := s.logger.With(zap.String("method", "Create"), zap.String("name", params.Name))

	if params.Name == "" {
		return nil, fmt.Errorf("shop name is required: %w", models.ErrValidation)
	}
	params.CreatedBy = actorID

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		l.Error("Repository shop creation failed", zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, actorID, "shop_create", "shop", created.ID.String(), map[string]any{"name": created.Name})
	l.Info("Shop created", zap.String("shopID", created.ID.String()))
	return created, nil
}

// GetByID implements shop.Service.
func (s *ServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	return s.repo.GetByID(ctx, id)
}

// List implements shop.Service.
func (s *ServiceImpl) List(ctx context.Context, filter models.ShopFilter) ([]models.Shop, int, error) {
	shops, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list shops", zap.Error(err))
		return nil, 0, err
	}
	return shops, total, nil
}

// Update implements shop.Service.
func (s *ServiceImpl) Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, params UpdateShopParams) (*models.Shop, error) {
	l := s.logger.With(zap.String("method", "Update"), zap.String("shopID", id.String()))

	updated, err := s.repo.Update(ctx, id, params)
	if err != nil {
		l.Error("Repository shop update failed", zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, actorID, "shop_update", "shop", id.String(), nil)
	return updated, nil
}
