// Package main wires together the API gateway binary.
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

	"github.com/vidstream-labs/searchcore/internal/breaker"
	"github.com/vidstream-labs/searchcore/internal/config"
	"github.com/vidstream-labs/searchcore/internal/gateway"
	"github.com/vidstream-labs/searchcore/internal/logging"
	"github.com/vidstream-labs/searchcore/internal/metrics"
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

	registry := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout(),
		OnStateChange:    observeTransition(logger),
	})
	for name, override := range cfg.Breakers {
		registry.Configure(name, breaker.Config{
			FailureThreshold: override.FailureThreshold,
			RecoveryTimeout:  override.RecoveryTimeout(),
		})
	}

	services := make([]gateway.Service, 0, len(cfg.Gateway.Services))
	for name, baseURL := range cfg.Gateway.Services {
		services = append(services, gateway.Service{Name: name, BaseURL: baseURL})
	}

	gwServer := gateway.NewServer(
		registry,
		services,
		cfg.ClientTimeout(),
		cfg.Breaker.RecoveryTimeout(),
		logger.Named("gateway"),
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:           gwServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", zap.Int("port", cfg.Gateway.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	logger.Info("gateway stopped")
}

func observeTransition(logger *zap.Logger) func(name string, from, to breaker.State) {
	return func(name string, from, to breaker.State) {
		logger.Warn("circuit breaker transition",
			zap.String("service", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		metrics.ObserveBreakerState(name, to.String(), int(to))
	}
}
