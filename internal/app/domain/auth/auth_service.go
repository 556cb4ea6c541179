package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldsale/fieldsale/internal/app/domain/auditlog"
	"github.com/fieldsale/fieldsale/internal/app/middleware"
	"github.com/fieldsale/fieldsale/internal/app/models"
	"github.com/fieldsale/fieldsale/internal/app/observability/metrics"
	"github.com/fieldsale/fieldsale/internal/pkg/config"
)

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

// LoginResult is everything a client needs to establish a session.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    uuid.UUID
	ExpiresAt    time.Time
	User         *models.User
}

// AuthService defines the business logic contract.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*LoginResult, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error)
}

// AuthServiceImpl provides the implementation for AuthService.
type AuthServiceImpl struct {
	logger *zap.Logger
	repo   AuthRepo
	audit  auditlog.Recorder
	cfg    *config.Config
}

// NewAuthService creates a new authentication service instance.
func NewAuthService(repo AuthRepo, audit auditlog.Recorder, cfg *config.Config, logger *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{logger: logger, repo: repo, audit: audit, cfg: cfg}
}

// Login validates credentials, generates tokens, stores the session.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := s.logger.With(zap.String("method", "Login"), zap.String("email", email))
	l.Debug("Attempting login")

	tracer := otel.Tracer("fieldsale")
	ctx, span := tracer.Start(ctx, "AuthService.Login", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()

	if m := metrics.Get(); m != nil {
		m.LoginsTotal.Add(ctx, 1)
	}

	// 1. Fetch user by email (includes hash)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		l.Warn("GetUserByEmail failed", zap.String("email", email))
		span.SetStatus(codes.Error, "Unknown user")
		// Don't reveal if user exists or password is wrong
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	// 2. Compare submitted password with stored hash
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	if err != nil {
		l.Warn("Password comparison failed", zap.String("userID", user.ID.String()))
		span.SetStatus(codes.Error, "Password mismatch")
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	// 3. Create the session first so its id can ride in the token claims
	refreshToken := uuid.NewString()
	refreshExpiresAt := time.Now().Add(s.getRefreshTTL())
	sessionID, err := s.repo.CreateSession(ctx, user.ID, refreshToken, refreshExpiresAt)
	if err != nil {
		l.Error("Failed to store session", zap.String("userID", user.ID.String()), zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("app error storing session: %w", err)
	}

	// 4. Generate the access token
	accessToken, expiresAt, err := s.generateAccessToken(user, sessionID)
	if err != nil {
		l.Error("Failed to generate access token", zap.String("userID", user.ID.String()), zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("app error generating tokens: %w", err)
	}

	s.audit.Record(ctx, user.ID, "login", "session", sessionID.String(), nil)

	l.Info("Login successful", zap.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Logged in")
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		ExpiresAt:    expiresAt,
		User:         publicUser(user),
	}, nil
}

// RefreshSession validates the refresh token, issues a new access token and
// rotates the refresh token within the same session. The session expiry is
// never extended; only last_refresh moves.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := s.logger.With(zap.String("method", "RefreshSession"))
	l.Debug("Attempting token refresh")

	if m := metrics.Get(); m != nil {
		m.TokenRefreshesTotal.Add(ctx, 1)
	}

	// 1. Validate the refresh token
	session, err := s.repo.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		l.Warn("Refresh token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid or expired refresh token: %w", models.ErrUnauthenticated)
	}
	if session.RevokedAt != nil {
		l.Warn("Refresh attempted on revoked session", zap.String("sessionID", session.ID.String()))
		return nil, fmt.Errorf("session revoked: %w", models.ErrUnauthenticated)
	}
	if time.Now().After(session.ExpiresAt) {
		l.Warn("Refresh attempted on expired session", zap.String("sessionID", session.ID.String()))
		return nil, fmt.Errorf("session expired: %w", models.ErrUnauthenticated)
	}

	// 2. Fetch full user details for new token claims
	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		l.Error("Failed to get user after refresh token validation", zap.String("userID", session.UserID.String()), zap.Error(err))
		// Deactivated user: kill the session rather than leave it refreshable.
		if revokeErr := s.repo.RevokeSessionByRefreshToken(ctx, refreshToken); revokeErr != nil {
			l.Warn("Failed to revoke session for missing user", zap.Error(revokeErr))
		}
		return nil, fmt.Errorf("app error retrieving user during refresh: %w", models.ErrUnauthenticated)
	}

	// 3. Rotate the refresh token in place
	newRefreshToken := uuid.NewString()
	if err = s.repo.RotateSession(ctx, session.ID, newRefreshToken); err != nil {
		l.Error("Failed to rotate refresh token", zap.String("sessionID", session.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("app error rotating session: %w", err)
	}

	// 4. Issue a new access token
	accessToken, expiresAt, err := s.generateAccessToken(user, session.ID)
	if err != nil {
		l.Error("Failed to generate new access token", zap.String("userID", user.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("app error generating tokens: %w", err)
	}

	l.Info("Token refresh successful", zap.String("userID", user.ID.String()))
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		SessionID:    session.ID,
		ExpiresAt:    expiresAt,
		User:         publicUser(user),
	}, nil
}

// Logout invalidates the session owning the refresh token.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	l := s.logger.With(zap.String("method", "Logout"))
	l.Debug("Attempting logout by revoking session")
	err := s.repo.RevokeSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		l.Error("Failed to revoke session", zap.Error(err))
		return fmt.Errorf("logout failed: %w", err)
	}
	l.Info("Logout successful (session revoked)")
	return nil
}

// UpdatePassword verifies old password, hashes new one, updates, revokes sessions.
func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := s.logger.With(zap.String("method", "UpdatePassword"), zap.String("userID", userID.String()))
	l.Debug("Attempting password update")

	// 1. Verify old password using the repository method
	err := s.repo.VerifyPassword(ctx, userID, oldPassword)
	if err != nil {
		l.Warn("Old password verification failed", zap.Error(err))
		return fmt.Errorf("incorrect old password: %w", models.ErrUnauthenticated)
	}

	// 2. Hash the *new* password
	newHashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		l.Error("Failed to hash new password", zap.Error(err))
		return fmt.Errorf("could not process new password")
	}

	// 3. Call repository to update the stored hash
	err = s.repo.UpdatePassword(ctx, userID, string(newHashedPasswordBytes))
	if err != nil {
		l.Error("Repository password update failed", zap.Error(err))
		return fmt.Errorf("failed to update password: %w", err)
	}

	// 4. Revoke all sessions for security
	if err = s.repo.RevokeAllUserSessions(ctx, userID); err != nil {
		l.Warn("Failed to revoke sessions after password update", zap.Error(err))
		return err
	}

	s.audit.Record(ctx, userID, "password_update", "user", userID.String(), nil)
	l.Info("Password updated successfully")
	return nil
}

// ForgotPassword stores a single-use reset token. The caller responds
// identically whether or not the email exists.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	l := s.logger.With(zap.String("method", "ForgotPassword"), zap.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		// Unknown email is not an error at this layer; never reveal existence.
		l.Debug("Password reset requested for unknown email")
		return nil
	}

	token, err := randomToken()
	if err != nil {
		l.Error("Failed to generate reset token", zap.Error(err))
		return fmt.Errorf("could not generate reset token: %w", err)
	}

	if err = s.repo.CreatePasswordReset(ctx, token, user.ID, time.Now().Add(1*time.Hour)); err != nil {
		l.Error("Failed to store reset token", zap.Error(err))
		return fmt.Errorf("could not store reset token: %w", err)
	}

	// Delivery (email/SMS) is a deployment concern; the token only lands in
	// the outbound channel, never in the HTTP response.
	l.Info("Password reset token created", zap.String("userID", user.ID.String()))
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := s.logger.With(zap.String("method", "ResetPassword"))

	userID, err := s.repo.ConsumePasswordReset(ctx, token)
	if err != nil {
		l.Warn("Reset token rejected", zap.Error(err))
		return fmt.Errorf("invalid or expired reset token: %w", models.ErrUnauthenticated)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		return fmt.Errorf("could not process new password")
	}

	if err = s.repo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		l.Error("Repository password update failed", zap.Error(err))
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err = s.repo.RevokeAllUserSessions(ctx, userID); err != nil {
		l.Warn("Failed to revoke sessions after password reset", zap.Error(err))
	}

	s.audit.Record(ctx, userID, "password_reset", "user", userID.String(), nil)
	l.Info("Password reset successfully", zap.String("userID", userID.String()))
	return nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error) {
	l := s.logger.With(zap.String("method", "GetUserByID"), zap.String("userID", userID.String()))
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.Error("Failed to fetch user by ID", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

// --- Internal helpers ---

func (s *AuthServiceImpl) generateAccessToken(user *models.UserAuth, sessionID uuid.UUID) (string, time.Time, error) {
	ttl := s.getAccessTTL()
	token, err := middleware.GenerateToken(middleware.JWTConfig{
		SecretKey:       s.cfg.JWT.SecretKey,
		TokenExpiration: ttl,
		Issuer:          s.getIssuer(),
		Audience:        s.getAudience(),
		Logger:          s.logger,
	}, user, sessionID.String())
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(ttl), nil
}

func publicUser(u *models.UserAuth) *models.User {
	return &models.User{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// --- Internal Helpers for Config with Defaults ---

func (s *AuthServiceImpl) getAccessTTL() time.Duration {
	if s.cfg != nil && s.cfg.JWT.AccessTokenTTL > 0 {
		return s.cfg.JWT.AccessTokenTTL
	}
	s.logger.Warn("JWT AccessTokenTTL not configured, using default 15m")
	return 15 * time.Minute
}

func (s *AuthServiceImpl) getRefreshTTL() time.Duration {
	if s.cfg != nil && s.cfg.JWT.RefreshTokenTTL > 0 {
		return s.cfg.JWT.RefreshTokenTTL
	}
	s.logger.Warn("JWT RefreshTokenTTL not configured, using default 7d")
	return 7 * 24 * time.Hour
}

func (s *AuthServiceImpl) getIssuer() string {
	if s.cfg != nil && s.cfg.JWT.Issuer != "" {
		return s.cfg.JWT.Issuer
	}
	return "fieldsale"
}

func (s *AuthServiceImpl) getAudience() string {
	if s.cfg != nil && s.cfg.JWT.Audience != "" {
		return s.cfg.JWT.Audience
	}
	return "fieldsale-app"
}
