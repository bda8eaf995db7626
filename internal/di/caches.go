package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/aristath/dividends/internal/clients/r2"
	"github.com/aristath/dividends/internal/lookupcache"
	"github.com/rs/zerolog"
)

// connectTimeout bounds the Redis ping and S3 configuration at startup.
const connectTimeout = 10 * time.Second

// InitializeCaches builds the fast lookup cache and the durable content cache
// over the configured backends.
func InitializeCaches(container *Container, log zerolog.Logger) error {
	cfg := container.Config

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	codec, err := lookupcache.ParseCodec(cfg.LookupCache.Codec)
	if err != nil {
		return err
	}

	var store lookupcache.Store
	switch cfg.LookupCache.Backend {
	case "redis":
		client, err := lookupcache.NewRedisClient(ctx, cfg.LookupCache.RedisURL)
		if err != nil {
			return err
		}
		container.RedisClient = client
		store = lookupcache.NewRedisStore(client, cfg.LookupCache.RedisPrefix)
	case "sqlite":
		if container.LookupDB == nil {
			return fmt.Errorf("sqlite lookup cache requires the lookup cache database")
		}
		container.SQLiteLookupStore = lookupcache.NewSQLiteStore(container.LookupDB)
		store = container.SQLiteLookupStore
	case "memory":
		store = lookupcache.NewMemoryStore(time.Now)
	default:
		return fmt.Errorf("unknown lookup cache backend %q", cfg.LookupCache.Backend)
	}
	container.LookupCache = lookupcache.New(store, codec, log)

	horizon, err := clientdata.ParseHorizon(cfg.ContentCache.PurgeHorizon)
	if err != nil {
		return err
	}

	var backend clientdata.Backend
	switch cfg.ContentCache.Backend {
	case "fs":
		fsBackend, err := clientdata.NewFSBackend(cfg.ContentCache.Dir)
		if err != nil {
			return fmt.Errorf("failed to initialize content cache directory: %w", err)
		}
		backend = fsBackend
	case "s3":
		s3 := cfg.ContentCache.S3
		client, err := r2.NewClient(ctx, r2.Config{
			Endpoint:        s3.Endpoint,
			Region:          s3.Region,
			Bucket:          s3.Bucket,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize object storage client: %w", err)
		}
		container.ObjectStore = client
		backend = clientdata.NewS3Backend(client, s3.Prefix)
	default:
		return fmt.Errorf("unknown content cache backend %q", cfg.ContentCache.Backend)
	}
	container.ContentCache = clientdata.NewCache(backend, horizon, log)

	log.Info().
		Str("lookup_backend", container.LookupCache.Backend()).
		Str("lookup_codec", container.LookupCache.Codec()).
		Str("content_backend", container.ContentCache.Backend()).
		Msg("Caches initialized")

	return nil
}
