package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/cache"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/config"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dashboard"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/database"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/rfm-dashboard/internal/errors"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/middleware"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/monitoring"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/resilience"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/security"
)

// @title RFM Dashboard API
// @version 1.0
// @description Revenue, cohort, RFM segment and cluster data for the customer analytics dashboard.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		appErr := apperrors.ToAppError(err)
		slog.Error(appErr.Message, "error_code", appErr.Code, "details", appErr.Details)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger.Logger)
	gin.SetMode(cfg.GinMode)

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go a.memory.Run(ctx)
	go a.security.RunCleanup(ctx, 10*time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "data_dir", cfg.DataDir, "sources", a.loader.Sources())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// app holds everything the handlers need
type app struct {
	cfg         config.Config
	logger      *monitoring.Logger
	metrics     *monitoring.Metrics
	prom        *monitoring.PromRegistry
	recorder    *monitoring.Recorder
	memory      *monitoring.MemoryMonitor
	db          *database.DB
	cache       *cache.Cache
	uploads     *database.UploadService
	postgres    *dataset.PostgresSource
	pgGuard     *resilience.GuardedSource
	loader      *dataset.Loader
	dashboard   *dashboard.Service
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
}

func newApp(ctx context.Context, cfg config.Config, logger *monitoring.Logger) (*app, error) {
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		metrics:     monitoring.NewMetrics(),
		prom:        monitoring.NewPromRegistry(),
		db:          db,
		cache:       cache.NewCache(cfg.CacheTTL, time.Minute),
		security:    security.NewSecurityMiddleware(cfg.Security),
		compression: middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
	}
	a.recorder = monitoring.NewRecorder(logger, a.metrics, a.prom)
	a.memory = monitoring.NewMemoryMonitor(cfg.MemoryInterval, cfg.MemoryWarnBytes, a.metrics, logger)
	a.security.OnRateLimited = a.recorder.RateLimited
	a.uploads = database.NewUploadService(database.NewRepository(db), a.cache)

	sources := []dataset.Source{a.uploads, dataset.NewFileSource(cfg.DataDir)}
	if cfg.PostgresEnabled() {
		err := resilience.RetryWithConfig(ctx, resilience.DefaultRetryConfig(), "postgres_connect", func(ctx context.Context) error {
			pg, err := dataset.OpenPostgres(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			a.postgres = pg
			return nil
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.pgGuard = resilience.NewGuardedSource(a.postgres, resilience.DefaultBreakerConfig())
		sources = append(sources, a.pgGuard)
	}

	a.loader = dataset.NewLoader(sources...)
	a.dashboard = dashboard.NewService(a.loader, a.recorder, cfg.DataDir, cfg.SnapshotSize)
	return a, nil
}

// Close releases the database handles and stops the cache janitor
func (a *app) Close() {
	a.cache.Close()
	if a.postgres != nil {
		if err := a.postgres.Close(); err != nil {
			slog.Error("Failed to close postgres", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
