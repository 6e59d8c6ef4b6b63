package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func sampleOrder(id string, createdAt time.Time) *domain.Order {
	o := &domain.Order{
		ID:          id,
		TotalAmount: 100,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		Links: []domain.SplitItem{
			{ID: "i-3", Value: 27},
			{ID: "i-1", Value: 23, LinkURL: "https://pay.example/1"},
			{ID: "i-4", Value: 26},
			{ID: "i-2", Value: 24},
		},
	}
	o.RefreshStatus()
	return o
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB("mysql", "whatever")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	pg := &DB{driver: DriverPostgres}
	query := "UPDATE t SET a = $1, b = $2 WHERE id = $10"

	assert.Equal(t, "UPDATE t SET a = ?, b = ? WHERE id = ?", sqlite.Rebind(query))
	assert.Equal(t, query, pg.Rebind(query))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.UTC)

	order := sampleOrder("order-1", created)
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, "order-1")
	require.NoError(t, err)

	assert.Equal(t, int64(100), got.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, order.Links, got.Links, "item order is preserved")
	assert.Nil(t, got.ExtractedRecords)
	assert.Nil(t, got.ExecutionTotals)
	assert.False(t, got.IsExecutionRegistered)
}

func TestOrderRepository_GetMissing(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	_, err := repo.GetByID(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_DuplicateCreateFails(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	order := sampleOrder("order-1", time.Now())

	require.NoError(t, repo.Create(ctx, order))
	assert.Error(t, repo.Create(ctx, order))
}

func TestOrderRepository_UpdateRoundTripsRecordsAndTotals(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	order := sampleOrder("order-1", created)
	require.NoError(t, repo.Create(ctx, order))

	for i := range order.Links {
		order.Links[i].IsPaid = true
	}
	order.Links = order.Links[1:]
	order.RefreshStatus()
	order.UpdatedAt = created.Add(time.Minute)
	order.ExtractedRecords = []domain.ExtractedRecord{
		{OrderNumber: "42", FilledQuantity: "0,5 BTC", Fee: "1,25 BRL", Total: "100,00 BRL"},
	}
	totals := domain.NewCurrencyTotals()
	totals.TotalQuantity = decimal.RequireFromString("0.5")
	totals.AveragePrice = decimal.RequireFromString("200")
	totals.TotalFees["BRL"] = decimal.RequireFromString("1.25")
	totals.TotalCost["BRL"] = decimal.RequireFromString("100")
	order.ExecutionTotals = &totals
	order.IsExecutionRegistered = true

	require.NoError(t, repo.Update(ctx, order))

	got, err := repo.GetByID(ctx, "order-1")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, got.Status)
	assert.Len(t, got.Links, 3)
	assert.Equal(t, "i-1", got.Links[0].ID)
	assert.True(t, order.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, order.ExtractedRecords, got.ExtractedRecords)
	require.NotNil(t, got.ExecutionTotals)
	assert.True(t, got.IsExecutionRegistered)
	assert.True(t, totals.TotalQuantity.Equal(got.ExecutionTotals.TotalQuantity))
	assert.True(t, totals.AveragePrice.Equal(got.ExecutionTotals.AveragePrice))
	assert.True(t, totals.TotalFees["BRL"].Equal(got.ExecutionTotals.TotalFees["BRL"]))
	assert.True(t, totals.TotalCost["BRL"].Equal(got.ExecutionTotals.TotalCost["BRL"]))
}

func TestOrderRepository_UpdateMissing(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	err := repo.Update(context.Background(), sampleOrder("ghost", time.Now()))

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_ListNewestFirst(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, sampleOrder("a", base)))
	require.NoError(t, repo.Create(ctx, sampleOrder("b", base.Add(2*time.Hour))))
	require.NoError(t, repo.Create(ctx, sampleOrder("c", base.Add(time.Hour))))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, "b", orders[0].ID)
	assert.Equal(t, "c", orders[1].ID)
	assert.Equal(t, "a", orders[2].ID)
	for _, o := range orders {
		assert.Len(t, o.Links, 4)
	}
}

func TestOrderRepository_ListEmpty(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))

	orders, err := repo.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderRepository_Delete(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("order-1", time.Now())))
	require.NoError(t, repo.Delete(ctx, "order-1"))

	_, err := repo.GetByID(ctx, "order-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "order-1"), domain.ErrOrderNotFound)
}

func TestOrderRepository_DeleteMany(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, sampleOrder("a", now)))
	require.NoError(t, repo.Create(ctx, sampleOrder("b", now)))
	require.NoError(t, repo.Create(ctx, sampleOrder("c", now)))

	require.NoError(t, repo.DeleteMany(ctx, []string{"a", "c", "unknown"}))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "b", orders[0].ID)

	var orphans int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM split_items WHERE order_id <> 'b'`).Scan(&orphans))
	assert.Zero(t, orphans)
}
