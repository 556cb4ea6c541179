package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// Session is the server-side record backing a refresh token. The session id
// is embedded in access-token claims; last_refresh is stamped on every
// rotation while expires_at stays anchored to login.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	RefreshToken string
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	LastRefresh  *time.Time
}

type AuthRepo interface {
	// GetUserByEmail fetches user details needed for validation/token generation.
	GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error)
	// GetUserByID fetches user details by ID.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error)
	// VerifyPassword checks the plain password against the stored hash.
	VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error
	// UpdatePassword updates the user's HASHED password.
	UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error

	// --- Session / refresh token handling ---
	// CreateSession stores a new session and returns its id.
	CreateSession(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time) (uuid.UUID, error)
	// GetSessionByRefreshToken returns the session owning the token, valid or not.
	GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	// RotateSession swaps the refresh token in place and stamps last_refresh.
	// The session expiry is NOT extended.
	RotateSession(ctx context.Context, sessionID uuid.UUID, newRefreshToken string) error
	// RevokeSessionByRefreshToken marks the owning session revoked.
	RevokeSessionByRefreshToken(ctx context.Context, refreshToken string) error
	// RevokeAllUserSessions marks every session of the user revoked.
	RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error

	// --- Password reset ---
	CreatePasswordReset(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error
	// ConsumePasswordReset validates the token, marks it used and returns the user id.
	ConsumePasswordReset(ctx context.Context, token string) (uuid.UUID, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAuthRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// GetUserByEmail implements auth.AuthRepo.
func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	var user models.UserAuth
	query := `SELECT id, email, role, first_name, last_name, password_hash, is_active, created_at
	          FROM users WHERE email = $1 AND is_active = TRUE`
	err := r.pgpool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Role, &user.FirstName, &user.LastName,
		&user.Password, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching user by email", slog.Any("error", err), slog.String("email", email))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return &user, nil
}

// GetUserByID implements auth.AuthRepo.
func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error) {
	var user models.UserAuth
	query := `SELECT id, email, role, first_name, last_name, password_hash, is_active, created_at
	          FROM users WHERE id = $1 AND is_active = TRUE`
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Email, &user.Role, &user.FirstName, &user.LastName,
		&user.Password, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with ID %s not found: %w", userID, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching user by ID", slog.Any("error", err), slog.String("userID", userID.String()))
		return nil, fmt.Errorf("database error fetching user by ID: %w", err)
	}
	return &user, nil
}

// VerifyPassword implements auth.AuthRepo. Compares plain password to stored hash.
func (r *PostgresAuthRepo) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	var storedHash string
	query := `SELECT password_hash FROM users WHERE id = $1 AND is_active = TRUE`
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(&storedHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("user not found: %w", models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching password hash for verification", slog.Any("error", err), slog.String("userID", userID.String()))
		return fmt.Errorf("database error verifying password: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if err != nil {
		l := r.logger.With(slog.String("userID", userID.String()))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			l.WarnContext(ctx, "Password mismatch during verification")
			return fmt.Errorf("invalid password: %w", models.ErrUnauthenticated)
		}
		l.ErrorContext(ctx, "Error comparing password hash", slog.Any("error", err))
		return fmt.Errorf("error during password comparison: %w", err)
	}
	return nil
}

// UpdatePassword implements auth.AuthRepo. Expects HASHED password.
func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2 AND is_active = TRUE`
	tag, err := r.pgpool.Exec(ctx, query, newHashedPassword, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating password hash", slog.Any("error", err), slog.String("userID", userID.String()))
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "User not found during password update", slog.String("userID", userID.String()))
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	return nil
}

// CreateSession implements auth.AuthRepo.
func (r *PostgresAuthRepo) CreateSession(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time) (uuid.UUID, error) {
	var sessionID uuid.UUID
	query := `INSERT INTO sessions (user_id, refresh_token, expires_at) VALUES ($1, $2, $3) RETURNING id`
	err := r.pgpool.QueryRow(ctx, query, userID, refreshToken, expiresAt).Scan(&sessionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, fmt.Errorf("refresh token collision: %w", models.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Error creating session", slog.Any("error", err), slog.String("userID", userID.String()))
		return uuid.Nil, fmt.Errorf("database error creating session: %w", err)
	}
	return sessionID, nil
}

// GetSessionByRefreshToken implements auth.AuthRepo.
func (r *PostgresAuthRepo) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	query := `SELECT id, user_id, refresh_token, expires_at, revoked_at, last_refresh
	          FROM sessions WHERE refresh_token = $1`
	err := r.pgpool.QueryRow(ctx, query, refreshToken).Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.ExpiresAt, &s.RevokedAt, &s.LastRefresh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("refresh token not found: %w", models.ErrUnauthenticated)
		}
		r.logger.ErrorContext(ctx, "Error querying session by refresh token", slog.Any("error", err))
		return nil, fmt.Errorf("database error validating refresh token: %w", err)
	}
	return &s, nil
}

// RotateSession implements auth.AuthRepo. Only the token and last_refresh
// change; expires_at keeps the original login anchor.
func (r *PostgresAuthRepo) RotateSession(ctx context.Context, sessionID uuid.UUID, newRefreshToken string) error {
	query := `UPDATE sessions SET refresh_token = $1, last_refresh = NOW()
	          WHERE id = $2 AND revoked_at IS NULL`
	tag, err := r.pgpool.Exec(ctx, query, newRefreshToken, sessionID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error rotating session refresh token", slog.Any("error", err), slog.String("sessionID", sessionID.String()))
		return fmt.Errorf("database error rotating refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found or revoked: %w", models.ErrUnauthenticated)
	}
	return nil
}

// RevokeSessionByRefreshToken implements auth.AuthRepo.
func (r *PostgresAuthRepo) RevokeSessionByRefreshToken(ctx context.Context, refreshToken string) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE refresh_token = $1 AND revoked_at IS NULL`
	tag, err := r.pgpool.Exec(ctx, query, refreshToken)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error revoking session", slog.Any("error", err))
		return fmt.Errorf("database error revoking session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Logout is idempotent; a missing or already revoked session is fine.
		r.logger.WarnContext(ctx, "Session not found or already revoked during logout")
	}
	return nil
}

// RevokeAllUserSessions implements auth.AuthRepo.
func (r *PostgresAuthRepo) RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.pgpool.Exec(ctx, query, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error revoking all sessions for user", slog.Any("error", err), slog.String("userID", userID.String()))
		return fmt.Errorf("database error revoking sessions: %w", err)
	}
	return nil
}

// CreatePasswordReset implements auth.AuthRepo.
func (r *PostgresAuthRepo) CreatePasswordReset(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	query := `INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.pgpool.Exec(ctx, query, token, userID, expiresAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error storing password reset token", slog.Any("error", err), slog.String("userID", userID.String()))
		return fmt.Errorf("database error storing reset token: %w", err)
	}
	return nil
}

// ConsumePasswordReset implements auth.AuthRepo. Single use: expiry check and
// the used_at stamp happen in one statement.
func (r *PostgresAuthRepo) ConsumePasswordReset(ctx context.Context, token string) (uuid.UUID, error) {
	var userID uuid.UUID
	query := `UPDATE password_resets SET used_at = NOW()
	          WHERE token = $1 AND used_at IS NULL AND expires_at > NOW()
	          RETURNING user_id`
	err := r.pgpool.QueryRow(ctx, query, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("reset token invalid, used or expired: %w", models.ErrUnauthenticated)
		}
		r.logger.ErrorContext(ctx, "Error consuming password reset token", slog.Any("error", err))
		return uuid.Nil, fmt.Errorf("database error consuming reset token: %w", err)
	}
	return userID, nil
}
