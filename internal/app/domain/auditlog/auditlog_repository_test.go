package auditlog

import (
	"context"
	"errors"
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

func testEntry() *models.AuditLog {
	return &models.AuditLog{
		ActorID:  uuid.New(),
		Action:   "order_create",
		Entity:   "order",
		EntityID: uuid.NewString(),
		Detail:   map[string]any{"total": 25.0},
	}
}

func TestInsertAuditLog(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	entry := testEntry()

	mockPool.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Detail).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow(uuid.New(), time.Now()))

	err := repo.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestInsertAuditLogDatabaseError(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	entry := testEntry()

	mockPool.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Detail).
		WillReturnError(errors.New("connection refused"))

	err := repo.Insert(context.Background(), entry)
	require.Error(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListAuditLogsFiltered(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	actorID := uuid.New()

	// squirrel resolves driver.Valuer args at ToSql() time, so the uuid
	// reaches the driver as its string form.
	mockPool.ExpectQuery("SELECT COUNT").
		WithArgs(actorID.String(), "order").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	mockPool.ExpectQuery("SELECT id, actor_id, action, entity, entity_id, detail, created_at FROM audit_logs").
		WithArgs(actorID.String(), "order").
		WillReturnRows(pgxmock.NewRows([]string{"id", "actor_id", "action", "entity", "entity_id", "detail", "created_at"}).
			AddRow(uuid.New(), actorID, "order_create", "order", uuid.NewString(), map[string]any{"total": 25.0}, time.Now()))

	entries, total, err := repo.List(context.Background(), models.AuditLogFilter{
		ActorID: &actorID,
		Entity:  "order",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "order_create", entries[0].Action)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestNormalizePage(t *testing.T) {
	page, perPage := normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, perPage)

	page, perPage = normalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, perPage)

	page, perPage = normalizePage(2, 50)
	assert.Equal(t, 2, page)
	assert.Equal(t, 50, perPage)
}
