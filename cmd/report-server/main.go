package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/handler"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	"github.com/noah-isme/sma-report-card/internal/service"
	"github.com/noah-isme/sma-report-card/pkg/cache"
	"github.com/noah-isme/sma-report-card/pkg/config"
	"github.com/noah-isme/sma-report-card/pkg/database"
	"github.com/noah-isme/sma-report-card/pkg/export"
	"github.com/noah-isme/sma-report-card/pkg/logger"
	"github.com/noah-isme/sma-report-card/pkg/mailer"
	"github.com/noah-isme/sma-report-card/pkg/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = time.Hour
)

type studentSource interface {
	FindStudent(ctx context.Context, id string) (*models.StudentRecord, error)
	ListStudentIDs(ctx context.Context) ([]string, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.HealthCheck{}

	var db *sqlx.DB
	var source studentSource
	switch cfg.Source {
	case config.SourcePostgres:
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		source = repository.NewGradebookRepository(db)
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	case config.SourceFile, "":
		roster, err := repository.NewFileRosterRepository(cfg.Roster.Path)
		if err != nil {
			logr.Fatal("failed to load roster", zap.String("path", cfg.Roster.Path), zap.Error(err))
		}
		source = roster
	default:
		logr.Fatal("unknown student source", zap.String("source", cfg.Source))
	}

	order, err := models.ParseSortOrder(cfg.Reports.SortOrder)
	if err != nil {
		logr.Fatal("invalid report sort order", zap.Error(err))
	}
	scale, err := models.ParseGPAScale(cfg.Reports.GPAScale)
	if err != nil {
		logr.Fatal("invalid gpa scale", zap.Error(err))
	}
	rule, err := models.NewAttendanceRule(cfg.Attendance.Mode, cfg.Attendance.Threshold)
	if err != nil {
		logr.Fatal("invalid attendance rule", zap.Error(err))
	}

	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	checks["storage"] = func(ctx context.Context) error {
		_, err := os.Stat(fileStore.Path("."))
		return err
	}

	metrics := service.NewMetricsService()
	reports := service.NewReportService(source, fileStore, signer, export.NewTextRenderer(rule).WithLogger(logr), metrics, logr, service.ReportServiceConfig{
		DefaultOrder: order,
		DefaultScale: scale,
		BaseURL:      cfg.Reports.BaseURL,
		ResultTTL:    cfg.Reports.SignedURLTTL,
	})

	sender, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		logr.Fatal("failed to init mailer", zap.Error(err))
	}
	delivery := service.NewDeliveryService(sender, metrics, logr, service.DeliveryConfig{
		Workers:         cfg.Mail.Workers,
		Retries:         cfg.Mail.Retries,
		RetryDelay:      cfg.Mail.RetryDelay,
		TrackingEnabled: cfg.Tracking.Enabled,
		TrackingBaseURL: cfg.Tracking.BaseURL,
	})
	delivery.Start(ctx)

	var trackingHandler *handler.TrackingHandler
	if cfg.Tracking.Enabled {
		tracking, err := newTrackingService(ctx, cfg, metrics, logr, checks)
		if err != nil {
			logr.Fatal("failed to init tracking store", zap.Error(err))
		}
		defer tracking.Close() //nolint:errcheck
		trackingHandler = handler.NewTrackingHandler(tracking)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Reports:  handler.NewReportHandler(reports, delivery),
		Tracking: trackingHandler,
		Metrics:  handler.NewMetricsHandler(metrics, checks),
		Service:  metrics,
		Logger:   logr,
	})

	go cleanupExports(ctx, reports, cfg.Reports.SignedURLTTL, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "source", cfg.Source, "tracking", cfg.Tracking.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if err := delivery.Shutdown(shutdownCtx); err != nil {
		logr.Warn("pending deliveries dropped", zap.Error(err))
	}
}

func newTrackingService(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger, checks map[string]handler.HealthCheck) (*service.TrackingService, error) {
	switch cfg.Tracking.Store {
	case config.StoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		store := repository.NewRedisConfirmationStore(client, cfg.Tracking.KeyPrefix, cfg.Tracking.TTL, logr)
		return service.NewTrackingService(store, metrics, logr), nil
	case config.StoreMemory, "":
		return service.NewTrackingService(repository.NewMemoryConfirmationStore(), metrics, logr), nil
	default:
		return nil, fmt.Errorf("unknown tracking store %q", cfg.Tracking.Store)
	}
}

func cleanupExports(ctx context.Context, reports *service.ReportService, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := reports.Cleanup(ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
