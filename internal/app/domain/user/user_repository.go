package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Repository = (*PostgresRepo)(nil)

// CreateUserParams carries a new user record with an already hashed password.
type CreateUserParams struct {
	Email          string
	Role           string
	FirstName      string
	LastName       string
	Phone          string
	HashedPassword string
}

// UpdateUserParams updates profile fields. Nil means leave unchanged.
type UpdateUserParams struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *string
}

type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type PostgresRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresRepo {
	return &PostgresRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "id, email, role, first_name, last_name, phone, is_active, created_at, updated_at"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.FirstName, &u.LastName,
		&u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create implements user.Repository. Expects a HASHED password.
func (r *PostgresRepo) Create(ctx context.Context, params CreateUserParams) (*models.User, error) {
	query := `INSERT INTO users (email, role, first_name, last_name, phone, password_hash)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING ` + userColumns
	user, err := scanUser(r.pgpool.QueryRow(ctx, query,
		params.Email, params.Role, params.FirstName, params.LastName, params.Phone, params.HashedPassword))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email already exists: %w", models.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Error inserting user", slog.Any("error", err), slog.String("email", params.Email))
		return nil, fmt.Errorf("database error creating user: %w", err)
	}
	return user, nil
}

// GetByID implements user.Repository.
func (r *PostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching user", slog.Any("error", err), slog.String("userID", id.String()))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}

// List implements user.Repository with role/active/search filters and paging.
func (r *PostgresRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	apply := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Role != "" {
			b = b.Where(sq.Eq{"role": filter.Role})
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			b = b.Where(sq.Or{
				sq.ILike{"email": pattern},
				sq.ILike{"first_name": pattern},
				sq.ILike{"last_name": pattern},
			})
		}
		return b
	}

	countSQL, countArgs, err := apply(psql.Select("COUNT(*)").From("users")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building user count query: %w", err)
	}
	var total int
	if err := r.pgpool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Error counting users", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error counting users: %w", err)
	}

	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	listSQL, listArgs, err := apply(psql.Select(userColumns).From("users")).
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building user list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing users", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, total, nil
}

// Update implements user.Repository.
func (r *PostgresRepo) Update(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*models.User, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	b := psql.Update("users").Set("updated_at", sq.Expr("NOW()"))
	if params.FirstName != nil {
		b = b.Set("first_name", *params.FirstName)
	}
	if params.LastName != nil {
		b = b.Set("last_name", *params.LastName)
	}
	if params.Phone != nil {
		b = b.Set("phone", *params.Phone)
	}
	if params.Role != nil {
		b = b.Set("role", *params.Role)
	}
	query, args, err := b.Where(sq.Eq{"id": id}).Suffix("RETURNING " + userColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user update query: %w", err)
	}

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error updating user", slog.Any("error", err), slog.String("userID", id.String()))
		return nil, fmt.Errorf("database error updating user: %w", err)
	}
	return user, nil
}

// Deactivate implements user.Repository. Users are never hard-deleted; their
// orders and collections must stay attributable.
func (r *PostgresRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`
	tag, err := r.pgpool.Exec(ctx, query, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deactivating user", slog.Any("error", err), slog.String("userID", id.String()))
		return fmt.Errorf("database error deactivating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found or already inactive: %w", id, models.ErrNotFound)
	}
	return nil
}
