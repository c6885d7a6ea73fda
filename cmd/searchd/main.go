// Package main wires together the search service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vidstream-labs/searchcore/internal/api"
	"github.com/vidstream-labs/searchcore/internal/catalog"
	catalogMemory "github.com/vidstream-labs/searchcore/internal/catalog/memory"
	catalogPostgres "github.com/vidstream-labs/searchcore/internal/catalog/postgres"
	"github.com/vidstream-labs/searchcore/internal/clock/system"
	"github.com/vidstream-labs/searchcore/internal/config"
	"github.com/vidstream-labs/searchcore/internal/dispatcher"
	"github.com/vidstream-labs/searchcore/internal/id/uuid"
	"github.com/vidstream-labs/searchcore/internal/logging"
	"github.com/vidstream-labs/searchcore/internal/metrics"
	queueMemory "github.com/vidstream-labs/searchcore/internal/queue/memory"
	"github.com/vidstream-labs/searchcore/internal/relevance"
	"github.com/vidstream-labs/searchcore/internal/scheduler"
	storeMemory "github.com/vidstream-labs/searchcore/internal/store/memory"
	"github.com/vidstream-labs/searchcore/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	var source catalog.Source
	if cfg.Catalog.DSN != "" {
		pgSource, err := catalogPostgres.NewSource(ctx, catalogPostgres.SourceConfig{
			DSN:             cfg.Catalog.DSN,
			MaxConns:        cfg.Catalog.MaxConns,
			MinConns:        cfg.Catalog.MinConns,
			MaxConnLifetime: time.Duration(cfg.Catalog.ConnLifeMins) * time.Minute,
		})
		if err != nil {
			logger.Fatal("catalog source init failed", zap.Error(err))
		}
		defer pgSource.Close()
		source = pgSource
	} else {
		logger.Warn("no catalog DSN configured, using empty in-memory catalog")
		source = catalogMemory.NewSource(nil)
	}

	jobStore := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(cfg.Scheduler.QueueDepth)
	clock := system.New()
	idGen := uuid.New()
	executor := relevance.New(source)

	var workers []*worker.Worker
	for i := 0; i < cfg.Scheduler.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			jobStore,
			executor,
			clock,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)
	sched := scheduler.New(jobStore, queue, idGen, clock, logger.Named("scheduler"))

	apiServer := api.NewServer(sched, queue, cfg, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("search service listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("draining workers and shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	<-dispatchDone
	queue.Close()
	logger.Info("search service stopped")
}
