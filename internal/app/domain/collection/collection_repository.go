package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Repository = (*PostgresRepo)(nil)

// PGXPool is the subset of pgxpool.Pool the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PGXPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type CreateCollectionParams struct {
	OrderID     uuid.UUID
	ShopID      uuid.UUID
	Amount      float64
	Method      string
	CollectedBy uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, params CreateCollectionParams) (*models.Collection, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error)
	// OrderBalance returns the order total alongside the sum already
	// collected against it.
	OrderBalance(ctx context.Context, orderID uuid.UUID) (*models.OrderBalance, error)
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

const collectionColumns = "id, order_id, shop_id, amount, method, collected_by, collected_at"

func scanCollection(row pgx.Row) (*models.Collection, error) {
	var c models.Collection
	err := row.Scan(&c.ID, &c.OrderID, &c.ShopID, &c.Amount, &c.Method, &c.CollectedBy, &c.CollectedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create implements collection.Repository. The balance check and insert run
// in one transaction with the order row locked, so concurrent collections
// against the same order serialize and cannot jointly exceed the total.
func (r *PostgresRepo) Create(ctx context.Context, params CreateCollectionParams) (*models.Collection, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error starting collection transaction", slog.Any("error", err))
		return nil, fmt.Errorf("database error recording collection: %w", err)
	}
	defer tx.Rollback(ctx)

	var total float64
	err = tx.QueryRow(ctx, `SELECT total_amount FROM orders WHERE id = $1 FOR UPDATE`, params.OrderID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s not found: %w", params.OrderID, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error locking order row", slog.Any("error", err), slog.String("orderID", params.OrderID.String()))
		return nil, fmt.Errorf("database error recording collection: %w", err)
	}

	var collected float64
	query := `SELECT COALESCE(SUM(amount), 0) FROM collections WHERE order_id = $1`
	if err := tx.QueryRow(ctx, query, params.OrderID).Scan(&collected); err != nil {
		r.logger.ErrorContext(ctx, "Error summing collections", slog.Any("error", err), slog.String("orderID", params.OrderID.String()))
		return nil, fmt.Errorf("database error recording collection: %w", err)
	}
	if params.Amount > total-collected {
		return nil, fmt.Errorf("amount %.2f exceeds outstanding balance %.2f: %w",
			params.Amount, total-collected, models.ErrValidation)
	}

	query = `INSERT INTO collections (order_id, shop_id, amount, method, collected_by)
	         VALUES ($1, $2, $3, $4, $5)
	         RETURNING ` + collectionColumns
	collection, err := scanCollection(tx.QueryRow(ctx, query,
		params.OrderID, params.ShopID, params.Amount, params.Method, params.CollectedBy))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting collection", slog.Any("error", err), slog.String("orderID", params.OrderID.String()))
		return nil, fmt.Errorf("database error recording collection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Error committing collection", slog.Any("error", err))
		return nil, fmt.Errorf("database error recording collection: %w", err)
	}
	return collection, nil
}

// GetByID implements collection.Repository.
func (r *PostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`
	collection, err := scanCollection(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("collection %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching collection", slog.Any("error", err), slog.String("collectionID", id.String()))
		return nil, fmt.Errorf("database error fetching collection: %w", err)
	}
	return collection, nil
}

// List implements collection.Repository.
func (r *PostgresRepo) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	apply := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.OrderID != nil {
			b = b.Where(sq.Eq{"order_id": *filter.OrderID})
		}
		if filter.ShopID != nil {
			b = b.Where(sq.Eq{"shop_id": *filter.ShopID})
		}
		if filter.CollectedBy != nil {
			b = b.Where(sq.Eq{"collected_by": *filter.CollectedBy})
		}
		if filter.DateFrom != nil {
			b = b.Where(sq.GtOrEq{"collected_at": *filter.DateFrom})
		}
		if filter.DateTo != nil {
			b = b.Where(sq.Lt{"collected_at": *filter.DateTo})
		}
		return b
	}

	countSQL, countArgs, err := apply(psql.Select("COUNT(*)").From("collections")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building collection count query: %w", err)
	}
	var total int
	if err := r.pgpool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Error counting collections", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error counting collections: %w", err)
	}

	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	listSQL, listArgs, err := apply(psql.Select(collectionColumns).From("collections")).
		OrderBy("collected_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building collection list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing collections", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error listing collections: %w", err)
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning collection row: %w", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating collection rows: %w", err)
	}
	return collections, total, nil
}

// OrderBalance implements collection.Repository.
func (r *PostgresRepo) OrderBalance(ctx context.Context, orderID uuid.UUID) (*models.OrderBalance, error) {
	query := `SELECT o.id, o.total_amount, COALESCE(SUM(c.amount), 0) AS collected
	          FROM orders o
	          LEFT JOIN collections c ON c.order_id = o.id
	          WHERE o.id = $1
	          GROUP BY o.id, o.total_amount`
	var b models.OrderBalance
	err := r.pgpool.QueryRow(ctx, query, orderID).Scan(&b.OrderID, &b.TotalAmount, &b.Collected)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s not found: %w", orderID, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error computing order balance", slog.Any("error", err), slog.String("orderID", orderID.String()))
		return nil, fmt.Errorf("database error computing order balance: %w", err)
	}
	b.Outstanding = b.TotalAmount - b.Collected
	return &b, nil
}
