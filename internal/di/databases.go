package di

import (
	"fmt"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the SQLite databases the configuration needs and
// applies their schemas. Only the sqlite lookup backend uses a database.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg}

	if cfg.LookupCache.Backend != "sqlite" {
		return container, nil
	}

	// lookup_cache.db - resolved instruments and dividends (ephemeral, rebuildable)
	lookupDB, err := database.New(database.Config{
		Path:    cfg.LookupCache.SQLitePath,
		Profile: database.ProfileCache,
		Name:    "lookup_cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lookup cache database: %w", err)
	}

	if err := lookupDB.Migrate(); err != nil {
		lookupDB.Close()
		return nil, fmt.Errorf("failed to apply lookup cache schema: %w", err)
	}
	container.LookupDB = lookupDB

	log.Info().Str("path", lookupDB.Path()).Msg("Lookup cache database initialized")
	return container, nil
}
