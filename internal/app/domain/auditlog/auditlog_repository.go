package auditlog

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Repository = (*PostgresRepo)(nil)

// PGXPool is the subset of pgxpool.Pool the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	// Insert appends one audit entry.
	Insert(ctx context.Context, entry *models.AuditLog) error
	// List returns entries matching the filter, newest first, plus the total count.
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

type PostgresRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresRepo(pgpool PGXPool, logger *slog.Logger) *PostgresRepo {
	return &PostgresRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// Insert implements auditlog.Repository.
func (r *PostgresRepo) Insert(ctx context.Context, entry *models.AuditLog) error {
	query := `INSERT INTO audit_logs (actor_id, action, entity, entity_id, detail)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.pgpool.QueryRow(ctx, query,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Detail,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting audit log", slog.Any("error", err), slog.String("action", entry.Action))
		return fmt.Errorf("database error inserting audit log: %w", err)
	}
	return nil
}

// List implements auditlog.Repository.
func (r *PostgresRepo) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	base := psql.Select("id", "actor_id", "action", "entity", "entity_id", "detail", "created_at").
		From("audit_logs")
	countQ := psql.Select("COUNT(*)").From("audit_logs")

	apply := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.ActorID != nil {
			b = b.Where(sq.Eq{"actor_id": *filter.ActorID})
		}
		if filter.Entity != "" {
			b = b.Where(sq.Eq{"entity": filter.Entity})
		}
		if filter.Action != "" {
			b = b.Where(sq.Eq{"action": filter.Action})
		}
		if filter.DateFrom != nil {
			b = b.Where(sq.GtOrEq{"created_at": *filter.DateFrom})
		}
		if filter.DateTo != nil {
			b = b.Where(sq.Lt{"created_at": *filter.DateTo})
		}
		return b
	}
	base = apply(base)
	countQ = apply(countQ)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building audit log count query: %w", err)
	}
	var total int
	if err := r.pgpool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Error counting audit logs", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error counting audit logs: %w", err)
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	listSQL, listArgs, err := base.
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building audit log list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing audit logs", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error listing audit logs: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning audit log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit log rows: %w", err)
	}
	return entries, total, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
