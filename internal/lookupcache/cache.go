package lookupcache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cache encodes records with a Codec on top of a Store.
type Cache struct {
	store Store
	codec Codec
	log   zerolog.Logger
}

// New creates a cache. A nil codec means JSON.
func New(store Store, codec Codec, log zerolog.Logger) *Cache {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Cache{
		store: store,
		codec: codec,
		log:   log.With().Str("component", "lookup_cache").Str("backend", store.Kind()).Logger(),
	}
}

// Backend returns the store kind.
func (c *Cache) Backend() string {
	return c.store.Kind()
}

// Codec returns the codec name.
func (c *Cache) Codec() string {
	return c.codec.Name()
}

// Get decodes key into dest. It returns the entry's expiry (zero for
// entries that never expire). Undecodable values are reported as misses.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (time.Time, bool, error) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if err := c.codec.Unmarshal(entry.Value, dest); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached value, treating as miss")
		return time.Time{}, false, nil
	}
	return entry.ExpiresAt, true, nil
}

// Set encodes v and stores it under key.
func (c *Cache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, data, ttl)
}
