//go:build integration

package sqlstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

// Runs against a live Postgres: go test -tags integration ./internal/adapter/repository/sqlstore/
func newPostgresDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(DriverPostgres, postgresConnectionString())
	require.NoError(t, err, "postgres must be reachable for integration tests")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func postgresConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "postgres"),
		envOr("DB_NAME", "splitpay"),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgres_OrderRoundTrip(t *testing.T) {
	repo := NewOrderRepository(newPostgresDB(t))
	ctx := context.Background()

	id := domain.NewID()
	order := sampleOrder(id, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, order))
	t.Cleanup(func() { repo.Delete(context.Background(), id) })

	order.Links[0].IsPaid = true
	order.ExtractedRecords = []domain.ExtractedRecord{{OrderNumber: "1", Total: "10,00 BRL"}}
	order.RefreshStatus()
	require.NoError(t, repo.Update(ctx, order))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.Links, got.Links)
	assert.Equal(t, order.ExtractedRecords, got.ExtractedRecords)
	assert.True(t, order.CreatedAt.Equal(got.CreatedAt))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	found := false
	for _, o := range orders {
		if o.ID == id {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, repo.DeleteMany(ctx, []string{id}))
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
