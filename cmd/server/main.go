// Package main is the entry point for the tradesignal service.
//
// The service scores a symbol universe with the configured strategies on a schedule,
// turns composite scores into trade signals and assesses the risk of held positions.
// Results are persisted to SQLite, exposed over HTTP and optionally published to Kafka.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tradesignal/internal/config"
	"github.com/aristath/tradesignal/internal/di"
	"github.com/aristath/tradesignal/internal/server"
	"github.com/aristath/tradesignal/pkg/logger"
)

// main loads configuration, wires the container, starts the HTTP server and the
// scheduler, then waits for SIGINT or SIGTERM and shuts everything down.
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("version", server.Version).Msg("Starting tradesignal")

	strategies, err := config.LoadStrategyFile(cfg.StrategyFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StrategyFile).Msg("Failed to load strategy file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, strategies, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close container")
		}
	}()

	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Container: container,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()

	monitor := server.NewStatusMonitor(container.EventManager, container.Resilient, container.MarketHoursService, log)
	go monitor.Run(ctx, time.Minute)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Waits for running jobs to finish
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
