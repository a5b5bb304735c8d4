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

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/cache"
	"github.com/meridian-pos/meridian-pos/internal/dal"
	"github.com/meridian-pos/meridian-pos/internal/gateway"
	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/masterdata"
	"github.com/meridian-pos/meridian-pos/internal/offline"
	"github.com/meridian-pos/meridian-pos/internal/orders"
	platformcache "github.com/meridian-pos/meridian-pos/internal/platform/cache"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/jobs"
	"github.com/meridian-pos/meridian-pos/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

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

	engine := inventory.NewEngine(dataAccess, dataAccess, logger)
	receipts := inventory.NewReceipts(dataAccess, dataAccess, dataAccess, logger)
	tracker := inventory.NewExpiryTracker(dataAccess)
	applier := dataAccess.ApplyOfflineAction(idempotency)

	inventoryHandler := inventory.NewHandler(logger, engine, receipts, tracker, dataAccess, dataAccess, dataAccess)
	masterDataHandler := masterdata.NewHandler(logger, dataAccess)
	ordersHandler := orders.NewHandler(logger, dataAccess)
	offlineHandler := offline.NewHandler(logger, queue, applier)
	reportHandler := report.NewHandler(report.NewClient(cfg.GotenbergURL), dataAccess, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobInspector := asynq.NewInspector(redisOpts)
	jobHandler := jobs.NewHandler(jobInspector, logger)

	if err := dataAccess.Preload(ctx); err != nil {
		logger.Warn("preload skipped", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		InventoryHandler:  inventoryHandler,
		MasterDataHandler: masterDataHandler,
		OrdersHandler:     ordersHandler,
		OfflineHandler:    offlineHandler,
		JobHandler:        jobHandler,
		ReportHandler:     reportHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
