package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/app"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/observability"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/db"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	auditHandler := jobs.NewAuditHandler(shared.NewAuditLogger(pool), logger, metrics.Jobs())

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:    logger,
		Handlers:  []jobs.TaskHandler{auditHandler.TaskHandler()},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := app.NewMetricsServer(cfg.WorkerMetricsAddr, metrics)
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server", slog.Any("error", err))
		}
	}()

	logger.Info("starting worker")
	runErr := worker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown worker metrics", slog.Any("error", err))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("worker run", slog.Any("error", runErr))
		os.Exit(1)
	}
}
