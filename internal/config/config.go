package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIToken is only meant for local development
const DefaultAPIToken = "dev-token"

// Config holds application configuration
type Config struct {
	HTTPPort int
	GRPCPort int
	APIToken string

	DBDriver   string // postgres or sqlite
	DBConnStr  string
	SQLitePath string

	LogLevel  string
	LogPretty bool

	SettlementCurrency string
	DefaultLocale      string
	MaxCorrectionPass  int
	MaxSplitParts      int
	PersistDebounce    time.Duration
	OrderCacheTTL      time.Duration

	ExtractorURL     string
	ExtractorAPIKey  string
	ExtractorTimeout time.Duration

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:           getEnvAsInt("HTTP_PORT", 8081),
		GRPCPort:           getEnvAsInt("GRPC_PORT", 8080),
		APIToken:           getEnv("API_TOKEN", DefaultAPIToken),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/splitpay.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", false),
		SettlementCurrency: getEnv("SETTLEMENT_CURRENCY", "BRL"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "pt"),
		MaxCorrectionPass:  getEnvAsInt("SPLIT_MAX_CORRECTION_PASSES", 1000),
		MaxSplitParts:      getEnvAsInt("SPLIT_MAX_PARTS", 10000),
		PersistDebounce:    getEnvAsDuration("PERSIST_DEBOUNCE", time.Second),
		OrderCacheTTL:      getEnvAsDuration("ORDER_CACHE_TTL", 5*time.Minute),
		ExtractorURL:       getEnv("EXTRACTOR_URL", ""),
		ExtractorAPIKey:    getEnv("EXTRACTOR_API_KEY", ""),
		ExtractorTimeout:   getEnvAsDuration("EXTRACTOR_TIMEOUT", 60*time.Second),
		AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
	}
	cfg.DBConnStr = postgresConnStr()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBConnStr == "" {
			return fmt.Errorf("DB_CONN_STR is required for postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}

	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		return fmt.Errorf("HTTP_PORT and GRPC_PORT must be positive")
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("HTTP_PORT and GRPC_PORT must differ")
	}

	return nil
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DBConnStr
}

// postgresConnStr uses DB_CONN_STR, or builds it from individual vars (Docker friendly)
func postgresConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "splitpay"),
	)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
