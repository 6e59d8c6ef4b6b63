package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_PORT", "GRPC_PORT", "DB_DRIVER", "DB_CONN_STR", "DB_HOST", "DB_NAME",
		"SETTLEMENT_CURRENCY", "DEFAULT_LOCALE", "PERSIST_DEBOUNCE", "CORS_ALLOWED_ORIGINS",
		"RATE_LIMIT_RPS", "SQLITE_PATH", "SPLIT_MAX_PARTS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, 8080, cfg.GRPCPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./data/splitpay.db", cfg.DSN())
	assert.Equal(t, "BRL", cfg.SettlementCurrency)
	assert.Equal(t, "pt", cfg.DefaultLocale)
	assert.Equal(t, 1000, cfg.MaxCorrectionPass)
	assert.Equal(t, 10000, cfg.MaxSplitParts)
	assert.Equal(t, time.Second, cfg.PersistDebounce)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, float64(10), cfg.RateLimitRPS)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=splitpay sslmode=disable", cfg.DBConnStr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_CONN_STR", "postgres://u:p@db/splitpay")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("PERSIST_DEBOUNCE", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://u:p@db/splitpay", cfg.DSN())
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.PersistDebounce)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("GRPC_PORT", "not-a-port")
	t.Setenv("ORDER_CACHE_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.GRPCPort)
	assert.Equal(t, 5*time.Minute, cfg.OrderCacheTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"unknown driver", Config{DBDriver: "mysql", HTTPPort: 1, GRPCPort: 2}, "DB_DRIVER"},
		{"sqlite without path", Config{DBDriver: "sqlite", HTTPPort: 1, GRPCPort: 2}, "SQLITE_PATH"},
		{"same ports", Config{DBDriver: "sqlite", SQLitePath: "x.db", HTTPPort: 1, GRPCPort: 1}, "must differ"},
		{"valid", Config{DBDriver: "sqlite", SQLitePath: "x.db", HTTPPort: 1, GRPCPort: 2}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
