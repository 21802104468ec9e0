/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rider eligibility service: configuration,
  logger, store backend, workflow layers, HTTP router, the optional
  recompute scheduler, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env / .env)
  2. Build the zap logger
  3. Open the configured store backend (memory | sqlite | rest)
  4. Wire Updater and Orchestrator
  5. Start the HTTP server and (if enabled) the recompute scheduler

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler and cancel any in-flight bulk run (it finishes
     its current batch window, starts no new one)
  2. Stop accepting new connections, drain for up to 30s
  3. Close the store

SEE ALSO:
  - config/config.go: settings and environment variables
  - api/server.go: router configuration
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/rider-engine/api"
	"github.com/warp/rider-engine/config"
	"github.com/warp/rider-engine/logging"
	"github.com/warp/rider-engine/rider"
	memstore "github.com/warp/rider-engine/rider/store"
	"github.com/warp/rider-engine/store/rest"
	"github.com/warp/rider-engine/store/sqlite"
	"github.com/warp/rider-engine/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "rider-engine")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Store backend
	var st rider.Store
	var closeStore func() error
	switch cfg.StoreBackend {
	case "memory":
		st = memstore.NewMemory()
	case "rest":
		if cfg.RestBaseURL == "" {
			logger.Fatal("store backend 'rest' requires RIDER_REST_BASE_URL")
		}
		st = rest.New(cfg.RestBaseURL, cfg.RestToken, cfg.RestTable, logger)
	default:
		sq, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		st = sq
		closeStore = sq.Close
	}
	logger.Info("store ready", zap.String("backend", cfg.StoreBackend))

	// Workflow layers
	updater := workflow.NewUpdater(st, logger)
	orchestrator := workflow.NewOrchestrator(st, workflow.LogSink{Logger: logger}, logger,
		workflow.OrchestratorConfig{
			PageSize:    cfg.BulkPageSize,
			BatchSize:   cfg.BulkBatchSize,
			Concurrency: cfg.BulkConcurrency,
			WindowDelay: cfg.BulkWindowDelay,
		})

	// HTTP surface
	handler := api.NewHandler(st, updater, orchestrator, logger)
	bulkCtx, cancelBulk := context.WithCancel(context.Background())
	handler.SetBulkContext(bulkCtx)
	router := api.NewRouter(handler)

	// Optional periodic recompute
	scheduler := api.NewRecomputeScheduler(orchestrator, logger)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Interval = cfg.SchedulerInterval
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	scheduler.Stop()
	cancelBulk()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if closeStore != nil {
		if err := closeStore(); err != nil {
			logger.Error("closing store", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}
