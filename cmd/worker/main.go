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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/cache"
	"github.com/meridian-pos/meridian-pos/internal/dal"
	"github.com/meridian-pos/meridian-pos/internal/gateway"
	"github.com/meridian-pos/meridian-pos/internal/offline"
	platformcache "github.com/meridian-pos/meridian-pos/internal/platform/cache"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	cacheStore := cache.NewStore(redisClient, logger)
	queue := offline.NewQueue(redisClient, logger)
	gw := gateway.New(dbpool)
	idempotency := shared.NewIdempotencyStore(dbpool)

	dataAccess := dal.New(gw, cacheStore, queue, dal.TTLConfig{
		Products:   cfg.CacheTTLProducts,
		Warehouses: cfg.CacheTTLWarehouses,
		Suppliers:  cfg.CacheTTLSuppliers,
		Inventory:  cfg.CacheTTLInventory,
		Orders:     cfg.CacheTTLOrders,
		Dashboard:  cfg.CacheTTLDashboard,
	}, logger)
	applier := dataAccess.ApplyOfflineAction(idempotency)
	metrics := jobs.NewMetrics(nil)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics listening", slog.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	now := time.Now().UTC()
	syncTask, err := jobs.NewOfflineSyncTask(now)
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewExpirySweepTask(now)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOfflineSync, Handler: jobs.SyncHandler(queue, applier, metrics, logger)},
			{Type: jobs.TaskExpirySweep, Handler: jobs.ExpirySweepHandler(gw, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OfflineSyncCron, Task: syncTask},
			{Spec: cfg.ExpirySweepCron, Task: sweepTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
