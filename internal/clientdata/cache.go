// Package clientdata provides the durable content cache that backs every
// upstream call a supplier makes. Content lives in per-unit directories next
// to a purge marker; a unit whose marker has elapsed is deleted on its next
// access or during a sweep.
package clientdata

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MarkerFile is the sidecar holding a unit's purge time (RFC 3339).
const MarkerFile = ".purge-at"

// Unit addresses one cached blob. Dir is the unit directory, scoped by
// supplier and lookup key (e.g. "trading212/companies/US7561091049"),
// File is the blob name inside it.
type Unit struct {
	Dir  string
	File string
}

func (u Unit) String() string {
	return u.Dir + "/" + u.File
}

// Cache is the durable content cache.
type Cache struct {
	backend Backend
	horizon PurgeHorizon
	now     func() time.Time
	locks   *unitLocks
	log     zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache over backend. A nil horizon means NextMonth.
func NewCache(backend Backend, horizon PurgeHorizon, log zerolog.Logger, opts ...Option) *Cache {
	if horizon == nil {
		horizon = NextMonth
	}
	c := &Cache{
		backend: backend,
		horizon: horizon,
		now:     time.Now,
		locks:   newUnitLocks(),
		log:     log.With().Str("component", "content_cache").Str("backend", backend.Kind()).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the storage backend kind.
func (c *Cache) Backend() string {
	return c.backend.Kind()
}

// DefaultPurgeAt returns the purge time a write made now would receive.
func (c *Cache) DefaultPurgeAt() time.Time {
	return c.horizon(c.now())
}

func validatePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return fmt.Errorf("invalid cache path %q", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("invalid cache path %q", p)
		}
	}
	return nil
}

func validateUnit(u Unit) error {
	if err := validatePath(u.Dir); err != nil {
		return err
	}
	if u.File == "" || u.File == MarkerFile || strings.ContainsAny(u.File, "/\\") || u.File == "." || u.File == ".." {
		return fmt.Errorf("invalid cache file name %q", u.File)
	}
	return nil
}

// Read returns the unit's content. Expired units are deleted and reported
// absent. A unit without a marker never expires.
func (c *Cache) Read(ctx context.Context, u Unit) ([]byte, bool, error) {
	if err := validateUnit(u); err != nil {
		return nil, false, err
	}
	unlock := c.locks.lock(u.Dir)
	defer unlock()

	if _, err := c.pruneLocked(ctx, u.Dir); err != nil {
		return nil, false, err
	}

	data, err := c.backend.ReadFile(ctx, u.Dir+"/"+u.File)
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", u, err)
	}
	return data, true, nil
}

// Write rewrites the unit's purge marker and stores content. A zero purgeAt
// uses the configured horizon. An expired unit is removed before the write.
func (c *Cache) Write(ctx context.Context, u Unit, data []byte, purgeAt time.Time) error {
	if err := validateUnit(u); err != nil {
		return err
	}
	if purgeAt.IsZero() {
		purgeAt = c.horizon(c.now())
	}

	unlock := c.locks.lock(u.Dir)
	defer unlock()

	if _, err := c.pruneLocked(ctx, u.Dir); err != nil {
		return err
	}
	// The marker goes first so content never exists without one.
	marker := []byte(purgeAt.UTC().Format(time.RFC3339Nano))
	if err := c.backend.WriteFile(ctx, u.Dir+"/"+MarkerFile, marker); err != nil {
		return fmt.Errorf("failed to write purge marker for %s: %w", u.Dir, err)
	}
	if err := c.backend.WriteFile(ctx, u.Dir+"/"+u.File, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", u, err)
	}
	return nil
}

// Prune deletes dir if its purge time has passed and reports whether it did.
func (c *Cache) Prune(ctx context.Context, dir string) (bool, error) {
	if err := validatePath(dir); err != nil {
		return false, err
	}
	unlock := c.locks.lock(dir)
	defer unlock()
	return c.pruneLocked(ctx, dir)
}

// pruneLocked treats an unparseable marker as expired.
func (c *Cache) pruneLocked(ctx context.Context, dir string) (bool, error) {
	raw, err := c.backend.ReadFile(ctx, dir+"/"+MarkerFile)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read purge marker for %s: %w", dir, err)
	}

	purgeAt, parseErr := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(raw)))
	if parseErr == nil && purgeAt.After(c.now()) {
		return false, nil
	}

	if err := c.backend.RemoveAll(ctx, dir); err != nil {
		return false, fmt.Errorf("failed to purge %s: %w", dir, err)
	}
	c.log.Debug().Str("unit", dir).Msg("Purged expired cache unit")
	return true, nil
}

// Sweep prunes every unit with an elapsed marker and returns how many were removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	names, err := c.backend.List(ctx, "")
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, name := range names {
		if path.Base(name) != MarkerFile {
			continue
		}
		removed, err := c.Prune(ctx, path.Dir(name))
		if err != nil {
			return purged, err
		}
		if removed {
			purged++
		}
	}
	return purged, nil
}

// ReadJSON decodes a JSON unit into dest. Undecodable content counts as absent.
func (c *Cache) ReadJSON(ctx context.Context, u Unit, dest interface{}) (bool, error) {
	data, ok, err := c.Read(ctx, u)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn().Err(err).Str("unit", u.String()).Msg("Failed to unmarshal cached data")
		return false, nil
	}
	return true, nil
}

// WriteJSON encodes v as JSON and writes it.
func (c *Cache) WriteJSON(ctx context.Context, u Unit, v interface{}, purgeAt time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	return c.Write(ctx, u, data, purgeAt)
}

// ReadText returns a text unit as a string.
func (c *Cache) ReadText(ctx context.Context, u Unit) (string, bool, error) {
	data, ok, err := c.Read(ctx, u)
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

// WriteText stores a text unit.
func (c *Cache) WriteText(ctx context.Context, u Unit, text string, purgeAt time.Time) error {
	return c.Write(ctx, u, []byte(text), purgeAt)
}
