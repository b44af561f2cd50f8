package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/cache"
	"github.com/ekaya-inc/incident-atlas/pkg/config"
	"github.com/ekaya-inc/incident-atlas/pkg/database"
	"github.com/ekaya-inc/incident-atlas/pkg/handlers"
	"github.com/ekaya-inc/incident-atlas/pkg/logging"
	"github.com/ekaya-inc/incident-atlas/pkg/middleware"
	"github.com/ekaya-inc/incident-atlas/pkg/repositories"
	"github.com/ekaya-inc/incident-atlas/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadOrEnv(config.DefaultPath, Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr := cfg.Database.ConnectionString()
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(connStr)),
		zap.Bool("redis_cache", cfg.Redis.Enabled()),
		zap.Duration("statement_timeout", cfg.Database.StatementTimeout))

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateURL(connStr, logger); err != nil {
		return err
	}

	var queryCache cache.QueryCache
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Query cache disabled", zap.String("error", logging.SanitizeError(err)))
	} else if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		queryCache = cache.NewRedisQueryCache(redisClient, cfg.Redis.Prefix, cfg.Analytics.CacheTTL)
	}

	factRepo := repositories.NewIncidentFactRepository(db)
	analyticsService := services.NewAnalyticsService(factRepo, queryCache, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)

	queryMiddleware := database.WithQueryTimeout(db, cfg.Database.StatementTimeout, logger)
	handlers.NewAnalyticsHandler(analyticsService, cfg.Database.StatementTimeout, logger).
		RegisterRoutes(mux, queryMiddleware)
	handlers.NewLoadsHandler(repositories.NewLoadRunRepository(db), logger).
		RegisterRoutes(mux, queryMiddleware)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting incident-atlas",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
