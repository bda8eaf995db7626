// Package di provides dependency injection type definitions and wiring.
//
// The Container holds every long-lived component of the process. It is built
// by Wire() and handed to the HTTP server and the CLI.
package di

import (
	"errors"
	"time"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/aristath/dividends/internal/clients/r2"
	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/database"
	"github.com/aristath/dividends/internal/fallback"
	"github.com/aristath/dividends/internal/lookupcache"
	"github.com/aristath/dividends/internal/modules/identity"
	"github.com/aristath/dividends/internal/modules/resolution"
	"github.com/aristath/dividends/internal/modules/suppliers"
	"github.com/redis/go-redis/v9"
)

// Container holds all dependencies for the application.
type Container struct {
	Config    *config.Config
	StartedAt time.Time

	// Storage. LookupDB and SQLiteLookupStore are set only for the sqlite
	// lookup backend, RedisClient only for redis, ObjectStore only for the
	// s3 content backend.
	LookupDB          *database.DB
	RedisClient       *redis.Client
	SQLiteLookupStore *lookupcache.SQLiteStore
	ObjectStore       *r2.Client

	// Caches
	LookupCache  *lookupcache.Cache
	ContentCache *clientdata.Cache

	// Services
	IdentityResolver  *identity.Resolver
	Executor          *fallback.Executor
	SupplierRegistry  *suppliers.Registry
	ResolutionService *resolution.Service
}

// Close releases database and network connections. It is safe to call on a
// partially initialized container.
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.LookupDB != nil {
		if err := c.LookupDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
