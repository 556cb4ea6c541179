package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Repository = (*PostgresRepo)(nil)

type CreateOrderParams struct {
	ShopID      uuid.UUID
	CreatedBy   uuid.UUID
	Items       []models.OrderItem
	TotalAmount float64
}

type Repository interface {
	Create(ctx context.Context, params CreateOrderParams) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	// UpdateStatus moves a pending order to a terminal status. It returns
	// models.ErrOrderClosed when the order is already delivered or cancelled.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
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

const orderColumns = "id, shop_id, created_by, items, total_amount, status, created_at, updated_at"

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var itemsRaw []byte
	err := row.Scan(&o.ID, &o.ShopID, &o.CreatedBy, &itemsRaw, &o.TotalAmount,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
		return nil, fmt.Errorf("decoding order items: %w", err)
	}
	return &o, nil
}

// Create implements order.Repository.
func (r *PostgresRepo) Create(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
	itemsJSON, err := json.Marshal(params.Items)
	if err != nil {
		return nil, fmt.Errorf("encoding order items: %w", err)
	}

	query := `INSERT INTO orders (shop_id, created_by, items, total_amount, status)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING ` + orderColumns
	order, err := scanOrder(r.pgpool.QueryRow(ctx, query,
		params.ShopID, params.CreatedBy, itemsJSON, params.TotalAmount, models.OrderStatusPending))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting order", slog.Any("error", err), slog.String("shopID", params.ShopID.String()))
		return nil, fmt.Errorf("database error creating order: %w", err)
	}
	return order, nil
}

// GetByID implements order.Repository.
func (r *PostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching order", slog.Any("error", err), slog.String("orderID", id.String()))
		return nil, fmt.Errorf("database error fetching order: %w", err)
	}
	return order, nil
}

// List implements order.Repository.
func (r *PostgresRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	apply := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.ShopID != nil {
			b = b.Where(sq.Eq{"shop_id": *filter.ShopID})
		}
		if filter.CreatedBy != nil {
			b = b.Where(sq.Eq{"created_by": *filter.CreatedBy})
		}
		if filter.Status != "" {
			b = b.Where(sq.Eq{"status": filter.Status})
		}
		if filter.DateFrom != nil {
			b = b.Where(sq.GtOrEq{"created_at": *filter.DateFrom})
		}
		if filter.DateTo != nil {
			b = b.Where(sq.Lt{"created_at": *filter.DateTo})
		}
		return b
	}

	countSQL, countArgs, err := apply(psql.Select("COUNT(*)").From("orders")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building order count query: %w", err)
	}
	var total int
	if err := r.pgpool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Error counting orders", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error counting orders: %w", err)
	}

	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	listSQL, listArgs, err := apply(psql.Select(orderColumns).From("orders")).
		OrderBy("created_at DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building order list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing orders", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error listing orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating order rows: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus implements order.Repository. The WHERE status = 'pending'
// guard makes the transition race-safe: a concurrent delivery and
// cancellation cannot both win.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	query := `UPDATE orders SET status = $1, updated_at = NOW()
	          WHERE id = $2 AND status = $3
	          RETURNING ` + orderColumns
	order, err := scanOrder(r.pgpool.QueryRow(ctx, query, status, id, models.OrderStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish "no such order" from "order already closed".
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, fmt.Errorf("order %s is not pending: %w", id, models.ErrOrderClosed)
		}
		r.logger.ErrorContext(ctx, "Error updating order status", slog.Any("error", err), slog.String("orderID", id.String()))
		return nil, fmt.Errorf("database error updating order status: %w", err)
	}
	return order, nil
}
