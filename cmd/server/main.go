// Package main is the entry point for the instrument and dividend resolution service.
//
// The service resolves ISINs and ticker symbols to canonical instrument records
// and instruments to dividend yields, querying external suppliers in priority
// order and caching every answer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/di"
	"github.com/aristath/dividends/internal/scheduler"
	"github.com/aristath/dividends/internal/server"
	"github.com/aristath/dividends/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from the environment and the supplier file
// 2. Initializes logging
// 3. Wires all dependencies via the DI container (databases, caches, suppliers, services)
// 4. Schedules the cache cleanup and database check jobs
// 5. Starts the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting dividends service")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close container")
		}
	}()

	sched := scheduler.New(log)
	if err := jobs.Schedule(sched, cfg.CleanupSchedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
		Scheduler: sched,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop accepting requests first, then let running jobs finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sched.Stop()

	log.Info().Msg("Server stopped")
}
