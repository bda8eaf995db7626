package di

import (
	"fmt"
	"time"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/modules/suppliers"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize caches
// 3. Initialize services
// 4. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	return WireWithCatalogue(cfg, suppliers.DefaultCatalogue(), log)
}

// WireWithCatalogue is Wire with a custom supplier catalogue.
func WireWithCatalogue(cfg *config.Config, catalogue suppliers.Catalogue, log zerolog.Logger) (*Container, *JobInstances, error) {
	// Step 1: Initialize databases
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}
	container.StartedAt = time.Now()

	// Step 2: Initialize caches
	if err := InitializeCaches(container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize caches: %w", err)
	}

	// Step 3: Initialize services
	if err := InitializeServices(container, catalogue, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 4: Register jobs
	jobs := RegisterJobs(container, log)

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
