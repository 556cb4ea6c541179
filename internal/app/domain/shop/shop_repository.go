package shop

import (
	"context"
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

type CreateShopParams struct {
	Name      string
	OwnerName string
	Phone     string
	Address   string
	Area      string
	CreatedBy uuid.UUID
}

type UpdateShopParams struct {
	Name      *string
	OwnerName *string
	Phone     *string
	Address   *string
	Area      *string
}

type Repository interface {
	Create(ctx context.Context, params CreateShopParams) (*models.Shop, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	List(ctx context.Context, filter models.ShopFilter) ([]models.Shop, int, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateShopParams) (*models.Shop, error)
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

const shopColumns = "id, name, owner_name, phone, address, area, created_by, created_at, updated_at"

func scanShop(row pgx.Row) (*models.Shop, error) {
	var s models.Shop
	err := row.Scan(&s.ID, &s.Name, &s.OwnerName, &s.Phone, &s.Address, &s.Area,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create implements shop.Repository.
func (r *PostgresRepo) Create(ctx context.Context, params CreateShopParams) (*models.Shop, error) {
	query := `INSERT INTO shops (name, owner_name, phone, address, area, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING ` + shopColumns
	shop, err := scanShop(r.pgpool.QueryRow(ctx, query,
		params.Name, params.OwnerName, params.Phone, params.Address, params.Area, params.CreatedBy))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting shop", slog.Any("error", err), slog.String("name", params.Name))
		return nil, fmt.Errorf("database error creating shop: %w", err)
	}
	return shop, nil
}

// GetByID implements shop.Repository.
func (r *PostgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE id = $1`
	shop, err := scanShop(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shop %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error fetching shop", slog.Any("error", err), slog.String("shopID", id.String()))
		return nil, fmt.Errorf("database error fetching shop: %w", err)
	}
	return shop, nil
}

// List implements shop.Repository.
func (r *PostgresRepo) List(ctx context.Context, filter models.ShopFilter) ([]models.Shop, int, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	apply := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Area != "" {
			b = b.Where(sq.Eq{"area": filter.Area})
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			b = b.Where(sq.Or{
				sq.ILike{"name": pattern},
				sq.ILike{"owner_name": pattern},
			})
		}
		return b
	}

	countSQL, countArgs, err := apply(psql.Select("COUNT(*)").From("shops")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building shop count query: %w", err)
	}
	var total int
	if err := r.pgpool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Error counting shops", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error counting shops: %w", err)
	}

	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	listSQL, listArgs, err := apply(psql.Select(shopColumns).From("shops")).
		OrderBy("name ASC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building shop list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing shops", slog.Any("error", err))
		return nil, 0, fmt.Errorf("database error listing shops: %w", err)
	}
	defer rows.Close()

	var shops []models.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning shop row: %w", err)
		}
		shops = append(shops, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating shop rows: %w", err)
	}
	return shops, total, nil
}

// Update implements shop.Repository.
func (r *PostgresRepo) Update(ctx context.Context, id uuid.UUID, params UpdateShopParams) (*models.Shop, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	b := psql.Update("shops").Set("updated_at", sq.Expr("NOW()"))
	if params.Name != nil {
		b = b.Set("name", *params.Name)
	}
	if params.OwnerName != nil {
		b = b.Set("owner_name", *params.OwnerName)
	}
	if params.Phone != nil {
		b = b.Set("phone", *params.Phone)
	}
	if params.Address != nil {
		b = b.Set("address", *params.Address)
	}
	if params.Area != nil {
		b = b.Set("area", *params.Area)
	}
	query, args, err := b.Where(sq.Eq{"id": id}).Suffix("RETURNING " + shopColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building shop update query: %w", err)
	}

	shop, err := scanShop(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shop %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Error updating shop", slog.Any("error", err), slog.String("shopID", id.String()))
		return nil, fmt.Errorf("database error updating shop: %w", err)
	}
	return shop, nil
}
