package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

// Dashboards are aggregate queries; a short cache keeps repeated loads of the
// same screen from hammering the database.
const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = 5 * time.Minute
)

type Service interface {
	ForRep(ctx context.Context, repID uuid.UUID) (*models.RepDashboard, error)
	ForAdmin(ctx context.Context) (*models.AdminDashboard, error)
	ForSuperadmin(ctx context.Context) (*models.SuperadminDashboard, error)
}

type ServiceImpl struct {
	repo   Repository
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		cache:  cache.New(cacheTTL, cacheCleanup),
		logger: logger,
		now:    time.Now,
	}
}

// ForRep implements dashboard.Service.
func (s *ServiceImpl) ForRep(ctx context.Context, repID uuid.UUID) (*models.RepDashboard, error) {
	key := "rep:" + repID.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*models.RepDashboard), nil
	}

	d, err := s.repo.RepDashboard(ctx, repID, s.now())
	if err != nil {
		s.logger.Error("Failed to build rep dashboard", zap.Error(err), zap.String("repID", repID.String()))
		return nil, err
	}
	s.cache.Set(key, d, cache.DefaultExpiration)
	return d, nil
}

// ForAdmin implements dashboard.Service.
func (s *ServiceImpl) ForAdmin(ctx context.Context) (*models.AdminDashboard, error) {
	if cached, ok := s.cache.Get("admin"); ok {
		return cached.(*models.AdminDashboard), nil
	}

	d, err := s.repo.AdminDashboard(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to build admin dashboard", zap.Error(err))
		return nil, err
	}
	s.cache.Set("admin", d, cache.DefaultExpiration)
	return d, nil
}

// ForSuperadmin implements dashboard.Service.
func (s *ServiceImpl) ForSuperadmin(ctx context.Context) (*models.SuperadminDashboard, error) {
	if cached, ok := s.cache.Get("superadmin"); ok {
		return cached.(*models.SuperadminDashboard), nil
	}

	d, err := s.repo.SuperadminDashboard(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to build superadmin dashboard", zap.Error(err))
		return nil, err
	}
	s.cache.Set("superadmin", d, cache.DefaultExpiration)
	return d, nil
}
