package collection

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsale/fieldsale/internal/app/models"
)

func newMockRepo(t *testing.T) (*PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresRepo(mockPool, slog.Default()), mockPool
}

func testParams(amount float64) CreateCollectionParams {
	return CreateCollectionParams{
		OrderID:     uuid.New(),
		ShopID:      uuid.New(),
		Amount:      amount,
		Method:      models.PaymentCash,
		CollectedBy: uuid.New(),
	}
}

func TestCreateCollectionCommitsWithinBalance(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	params := testParams(60)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("SELECT total_amount FROM orders").
		WithArgs(params.OrderID).
		WillReturnRows(pgxmock.NewRows([]string{"total_amount"}).AddRow(100.0))
	mockPool.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM collections`).
		WithArgs(params.OrderID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(40.0))
	mockPool.ExpectQuery("INSERT INTO collections").
		WithArgs(params.OrderID, params.ShopID, params.Amount, params.Method, params.CollectedBy).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "shop_id", "amount", "method", "collected_by", "collected_at"}).
			AddRow(uuid.New(), params.OrderID, params.ShopID, params.Amount, params.Method, params.CollectedBy, time.Now()))
	mockPool.ExpectCommit()

	got, err := repo.Create(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.Amount)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateCollectionRejectsOverpaymentUnderLock(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	params := testParams(50)

	// A concurrent collection has already raised the collected sum past what
	// the caller saw; the locked re-check must reject the insert.
	mockPool.ExpectBegin()
	mockPool.ExpectQuery("SELECT total_amount FROM orders").
		WithArgs(params.OrderID).
		WillReturnRows(pgxmock.NewRows([]string{"total_amount"}).AddRow(100.0))
	mockPool.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM collections`).
		WithArgs(params.OrderID).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(80.0))
	mockPool.ExpectRollback()

	_, err := repo.Create(context.Background(), params)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateCollectionUnknownOrder(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	params := testParams(10)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("SELECT total_amount FROM orders").
		WithArgs(params.OrderID).
		WillReturnRows(pgxmock.NewRows([]string{"total_amount"}))
	mockPool.ExpectRollback()

	_, err := repo.Create(context.Background(), params)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
