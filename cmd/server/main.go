package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/splitpay-backend/internal/adapter/extractor"
	grpcadapter "github.com/simaogato/splitpay-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/splitpay-backend/internal/adapter/http"
	"github.com/simaogato/splitpay-backend/internal/adapter/repository/cached"
	"github.com/simaogato/splitpay-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/splitpay-backend/internal/config"
	"github.com/simaogato/splitpay-backend/internal/domain"
	"github.com/simaogato/splitpay-backend/internal/usecase/aggregator"
	"github.com/simaogato/splitpay-backend/internal/usecase/allocator"
	"github.com/simaogato/splitpay-backend/internal/usecase/extraction"
	"github.com/simaogato/splitpay-backend/internal/usecase/order"
	"github.com/simaogato/splitpay-backend/internal/usecase/persist"
	"github.com/simaogato/splitpay-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if cfg.APIToken == config.DefaultAPIToken {
		log.Warn().Msg("Using default API_TOKEN; set API_TOKEN for anything but local development")
	}

	// 1. Setup Database
	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to connect to database")
	}
	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// 2. Initialize Repositories
	orderRepo := cached.NewOrderRepository(
		sqlstore.NewOrderRepository(db),
		cache.New(cfg.OrderCacheTTL, cached.CacheCleanupInterval),
		cfg.OrderCacheTTL,
	)
	debouncer := persist.NewDebouncer(orderRepo, persist.RealClock(), cfg.PersistDebounce, log)

	// 3. Initialize Services (Use Cases)
	splitAllocator := allocator.New(nil, cfg.MaxCorrectionPass)
	splitAllocator.MaxParts = int64(cfg.MaxSplitParts)
	orderService := order.NewOrderService(
		orderRepo,
		debouncer,
		splitAllocator,
		aggregator.New(cfg.SettlementCurrency),
		domain.ParseLocale(cfg.DefaultLocale),
	)

	if cfg.ExtractorURL == "" {
		log.Warn().Msg("EXTRACTOR_URL not set; image extraction requests will fail")
	}
	extractorClient := extractor.NewClient(cfg.ExtractorURL, cfg.ExtractorAPIKey, cfg.ExtractorTimeout, log)
	extractionService := extraction.NewExtractionService(extractorClient, orderService, log)

	// 4. Start HTTP Server
	httpServer := httpadapter.New(httpadapter.Config{
		Port:           cfg.HTTPPort,
		Log:            log,
		Orders:         orderService,
		Extraction:     extractionService,
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log.With().Str("component", "grpc").Logger()),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterSplitPayServiceServer(grpcServer, grpcadapter.NewServer(orderService))
	reflection.Register(grpcServer)

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", grpcAddr).Msg("Failed to listen")
	}

	go func() {
		log.Info().Str("addr", grpcAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(log, httpServer, grpcServer, debouncer, db)
}

// openDatabase connects using the configured driver; sqlite files get their directory created
func openDatabase(cfg *config.Config) (*sqlstore.DB, error) {
	if cfg.DBDriver == sqlstore.DriverSQLite && cfg.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return sqlstore.NewDB(cfg.DBDriver, cfg.DSN())
}

// waitForShutdown waits for SIGTERM or SIGINT, stops both servers and writes pending order edits
func waitForShutdown(
	log zerolog.Logger,
	httpServer *httpadapter.Server,
	grpcServer *grpclib.Server,
	debouncer *persist.Debouncer,
	db *sqlstore.DB,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")

	if err := debouncer.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to write pending order edits")
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
	log.Info().Msg("Shutdown complete")
}
