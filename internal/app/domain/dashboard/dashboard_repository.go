package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

var _ Repository = (*PostgresRepo)(nil)

type Repository interface {
	RepDashboard(ctx context.Context, repID uuid.UUID, day time.Time) (*models.RepDashboard, error)
	AdminDashboard(ctx context.Context, day time.Time) (*models.AdminDashboard, error)
	SuperadminDashboard(ctx context.Context, day time.Time) (*models.SuperadminDashboard, error)
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

// dayBounds returns the half-open [start, end) window for the given day in
// the server's local time.
func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

// RepDashboard implements dashboard.Repository.
func (r *PostgresRepo) RepDashboard(ctx context.Context, repID uuid.UUID, day time.Time) (*models.RepDashboard, error) {
	start, end := dayBounds(day)
	var d models.RepDashboard

	// The three aggregates are independent, so run them concurrently.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		query := `SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		          FROM orders
		          WHERE created_by = $1 AND created_at >= $2 AND created_at < $3
		            AND status <> 'cancelled'`
		if err := r.pgpool.QueryRow(gctx, query, repID, start, end).Scan(&d.OrdersToday, &d.SalesToday); err != nil {
			r.logger.ErrorContext(gctx, "Error aggregating rep orders", slog.Any("error", err))
			return fmt.Errorf("database error building rep dashboard: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		query := `SELECT COALESCE(SUM(amount), 0)
		         FROM collections
		         WHERE collected_by = $1 AND collected_at >= $2 AND collected_at < $3`
		if err := r.pgpool.QueryRow(gctx, query, repID, start, end).Scan(&d.CollectionsToday); err != nil {
			r.logger.ErrorContext(gctx, "Error aggregating rep collections", slog.Any("error", err))
			return fmt.Errorf("database error building rep dashboard: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		query := `SELECT COALESCE(SUM(o.total_amount), 0) - COALESCE(SUM(paid.collected), 0),
		                COUNT(DISTINCT o.shop_id)
		         FROM orders o
		         LEFT JOIN (
		             SELECT order_id, SUM(amount) AS collected FROM collections GROUP BY order_id
		         ) paid ON paid.order_id = o.id
		         WHERE o.created_by = $1 AND o.status <> 'cancelled'`
		if err := r.pgpool.QueryRow(gctx, query, repID).Scan(&d.OutstandingTotal, &d.ShopCount); err != nil {
			r.logger.ErrorContext(gctx, "Error aggregating rep outstanding", slog.Any("error", err))
			return fmt.Errorf("database error building rep dashboard: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// AdminDashboard implements dashboard.Repository.
func (r *PostgresRepo) AdminDashboard(ctx context.Context, day time.Time) (*models.AdminDashboard, error) {
	start, end := dayBounds(day)
	var d models.AdminDashboard

	query := `SELECT COUNT(*) FROM users WHERE role = 'rep' AND is_active`
	if err := r.pgpool.QueryRow(ctx, query).Scan(&d.ActiveReps); err != nil {
		r.logger.ErrorContext(ctx, "Error counting active reps", slog.Any("error", err))
		return nil, fmt.Errorf("database error building admin dashboard: %w", err)
	}

	query = `SELECT COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled'),
	                COALESCE(SUM(total_amount) FILTER (WHERE created_at >= $1 AND created_at < $2 AND status <> 'cancelled'), 0),
	                COUNT(*) FILTER (WHERE status = 'pending')
	         FROM orders`
	if err := r.pgpool.QueryRow(ctx, query, start, end).Scan(&d.OrdersToday, &d.SalesToday, &d.PendingOrders); err != nil {
		r.logger.ErrorContext(ctx, "Error aggregating admin orders", slog.Any("error", err))
		return nil, fmt.Errorf("database error building admin dashboard: %w", err)
	}

	query = `SELECT COALESCE(SUM(amount), 0) FROM collections WHERE collected_at >= $1 AND collected_at < $2`
	if err := r.pgpool.QueryRow(ctx, query, start, end).Scan(&d.CollectionsToday); err != nil {
		r.logger.ErrorContext(ctx, "Error aggregating admin collections", slog.Any("error", err))
		return nil, fmt.Errorf("database error building admin dashboard: %w", err)
	}

	query = `SELECT COALESCE(SUM(o.total_amount), 0) - COALESCE(SUM(paid.collected), 0)
	         FROM orders o
	         LEFT JOIN (
	             SELECT order_id, SUM(amount) AS collected FROM collections GROUP BY order_id
	         ) paid ON paid.order_id = o.id
	         WHERE o.status <> 'cancelled'`
	if err := r.pgpool.QueryRow(ctx, query).Scan(&d.OutstandingTotal); err != nil {
		r.logger.ErrorContext(ctx, "Error aggregating admin outstanding", slog.Any("error", err))
		return nil, fmt.Errorf("database error building admin dashboard: %w", err)
	}

	return &d, nil
}

// SuperadminDashboard implements dashboard.Repository.
func (r *PostgresRepo) SuperadminDashboard(ctx context.Context, day time.Time) (*models.SuperadminDashboard, error) {
	admin, err := r.AdminDashboard(ctx, day)
	if err != nil {
		return nil, err
	}
	d := models.SuperadminDashboard{AdminDashboard: *admin}

	query := `SELECT
	              (SELECT COUNT(*) FROM users WHERE is_active),
	              (SELECT COUNT(*) FROM shops),
	              (SELECT COUNT(*) FROM orders)`
	if err := r.pgpool.QueryRow(ctx, query).Scan(&d.TotalUsers, &d.TotalShops, &d.TotalOrders); err != nil {
		r.logger.ErrorContext(ctx, "Error counting totals", slog.Any("error", err))
		return nil, fmt.Errorf("database error building superadmin dashboard: %w", err)
	}

	query = `SELECT u.id, TRIM(u.first_name || ' ' || u.last_name),
	                COUNT(o.id),
	                COALESCE(SUM(o.total_amount), 0),
	                COALESCE(SUM(paid.collected), 0)
	         FROM users u
	         LEFT JOIN orders o ON o.created_by = u.id AND o.status <> 'cancelled'
	         LEFT JOIN (
	             SELECT order_id, SUM(amount) AS collected FROM collections GROUP BY order_id
	         ) paid ON paid.order_id = o.id
	         WHERE u.role = 'rep' AND u.is_active
	         GROUP BY u.id, u.first_name, u.last_name
	         ORDER BY SUM(o.total_amount) DESC NULLS LAST`
	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error building rep summary", slog.Any("error", err))
		return nil, fmt.Errorf("database error building superadmin dashboard: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.RepSummary
		if err := rows.Scan(&s.RepID, &s.RepName, &s.OrderCount, &s.SalesTotal, &s.Collected); err != nil {
			return nil, fmt.Errorf("scanning rep summary row: %w", err)
		}
		s.Outstanding = s.SalesTotal - s.Collected
		d.RepSummary = append(d.RepSummary, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rep summary rows: %w", err)
	}

	return &d, nil
}
