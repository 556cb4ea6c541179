package auditlog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

// Recorder is the write-side contract other domains depend on. Recording is
// best effort: failures are logged, never returned, so an audit outage cannot
// fail a business operation.
type Recorder interface {
	Record(ctx context.Context, actorID uuid.UUID, action, entity, entityID string, detail map[string]any)
}

type Service interface {
	Recorder
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

type ServiceImpl struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

// Record implements auditlog.Recorder.
func (s *ServiceImpl) Record(ctx context.Context, actorID uuid.UUID, action, entity, entityID string, detail map[string]any) {
	entry := &models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("Failed to record audit log",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.Error(err))
	}
}

// List implements auditlog.Service.
func (s *ServiceImpl) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	l := s.logger.With(zap.String("method", "List"))
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		l.Error("Failed to list audit logs", zap.Error(err))
		return nil, 0, err
	}
	return entries, total, nil
}

// NopRecorder discards every entry. Used by tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, uuid.UUID, string, string, string, map[string]any) {}
