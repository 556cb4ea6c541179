package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/domain/auth"
	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

// Service enforces the role hierarchy: admins manage reps, superadmins manage
// admins and reps. Nobody manages superadmins through this API.
type Service interface {
	Create(ctx context.Context, actorRole string, actorID uuid.UUID, params CreateUserParams, plainPassword string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, actorRole string, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID, params UpdateUserParams) (*models.User, error)
	Deactivate(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) error
}

type ServiceImpl struct {
	repo     Repository
	authRepo auth.AuthRepo
	audit    auditlog.Recorder
	logger   *zap.Logger
}

func NewService(repo Repository, authRepo auth.AuthRepo, audit auditlog.Recorder, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		authRepo: authRepo,
		audit:    audit,
		logger:   logger,
	}
}

// canManage reports whether actorRole may administer targetRole.
func canManage(actorRole, targetRole string) bool {
	switch actorRole {
	case models.RoleSuperadmin:
		return targetRole == models.RoleAdmin || targetRole == models.RoleRep
	case models.RoleAdmin:
		return targetRole == models.RoleRep
	}
	return false
}

// Create implements user.Service.
func (s *ServiceImpl) Create(ctx context.Context, actorRole string, actorID uuid.UUID, params CreateUserParams, plainPassword string) (*models.User, error) {
	l := s.logger.With(zap.String("method", "Create"), zap.String("email", params.Email))

	if !models.ValidRole(params.Role) {
		return nil, fmt.Errorf("unknown role %q: %w", params.Role, models.ErrInvalidRole)
	}
	if !canManage(actorRole, params.Role) {
		l.Warn("Role not permitted to create target role",
			zap.String("actorRole", actorRole),
			zap.String("targetRole", params.Role))
		return nil, fmt.Errorf("%s cannot create %s accounts: %w", actorRole, params.Role, models.ErrForbidden)
	}
	if len(plainPassword) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", models.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("could not process password")
	}
	params.HashedPassword = string(hashed)

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		l.Error("Repository user creation failed", zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, actorID, "user_create", "user", created.ID.String(), map[string]any{
		"email": created.Email,
		"role":  created.Role,
	})
	l.Info("User created", zap.String("userID", created.ID.String()), zap.String("role", created.Role))
	return created, nil
}

// GetByID implements user.Service.
func (s *ServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List implements user.Service. Admins only ever see reps.
func (s *ServiceImpl) List(ctx context.Context, actorRole string, filter models.UserFilter) ([]models.User, int, error) {
	l := s.logger.With(zap.String("method", "List"))

	if actorRole == models.RoleAdmin {
		filter.Role = models.RoleRep
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		l.Error("Failed to list users", zap.Error(err))
		return nil, 0, err
	}
	return users, total, nil
}

// Update implements user.Service.
func (s *ServiceImpl) Update(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID, params UpdateUserParams) (*models.User, error) {
	l := s.logger.With(zap.String("method", "Update"), zap.String("userID", id.String()))

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actorRole, target.Role) {
		return nil, fmt.Errorf("%s cannot manage %s accounts: %w", actorRole, target.Role, models.ErrForbidden)
	}
	if params.Role != nil {
		if !models.ValidRole(*params.Role) {
			return nil, fmt.Errorf("unknown role %q: %w", *params.Role, models.ErrInvalidRole)
		}
		if !canManage(actorRole, *params.Role) {
			return nil, fmt.Errorf("%s cannot promote to %s: %w", actorRole, *params.Role, models.ErrForbidden)
		}
	}

	updated, err := s.repo.Update(ctx, id, params)
	if err != nil {
		l.Error("Repository user update failed", zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, actorID, "user_update", "user", id.String(), nil)
	l.Info("User updated")
	return updated, nil
}

// Deactivate implements user.Service. Also revokes the target's sessions so a
// deactivated user cannot keep refreshing.
func (s *ServiceImpl) Deactivate(ctx context.Context, actorRole string, actorID uuid.UUID, id uuid.UUID) error {
	l := s.logger.With(zap.String("method", "Deactivate"), zap.String("userID", id.String()))

	if actorID == id {
		return fmt.Errorf("cannot deactivate own account: %w", models.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actorRole, target.Role) {
		return fmt.Errorf("%s cannot manage %s accounts: %w", actorRole, target.Role, models.ErrForbidden)
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		l.Error("Repository deactivation failed", zap.Error(err))
		return err
	}
	if err := s.authRepo.RevokeAllUserSessions(ctx, id); err != nil {
		l.Warn("Failed to revoke sessions of deactivated user", zap.Error(err))
	}

	s.audit.Record(ctx, actorID, "user_deactivate", "user", id.String(), nil)
	l.Info("User deactivated")
	return nil
}
