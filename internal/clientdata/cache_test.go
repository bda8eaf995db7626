package clientdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupFSCache(t *testing.T) (*Cache, *FSBackend, *testClock) {
	t.Helper()
	backend, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)
	clock := &testClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	return NewCache(backend, nil, zerolog.Nop(), WithClock(clock.Now)), backend, clock
}

var companyUnit = Unit{Dir: "trading212/companies/US7561091049", File: "company.json"}

func TestCache_WriteThenRead(t *testing.T) {
	cache, backend, _ := setupFSCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`{"a":1}`), time.Time{}))

	data, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(data))

	marker, err := os.ReadFile(filepath.Join(backend.Root(), "trading212/companies/US7561091049", MarkerFile))
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01T00:00:00Z", string(marker))
}

func TestCache_ReadMissing(t *testing.T) {
	cache, _, _ := setupFSCache(t)

	data, ok, err := cache.Read(context.Background(), companyUnit)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestCache_ExpiredUnitIsDeletedOnRead(t *testing.T) {
	cache, backend, clock := setupFSCache(t)
	ctx := context.Background()

	nested := Unit{Dir: companyUnit.Dir, File: "extra.json"}
	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`{}`), clock.Now().Add(time.Hour)))
	require.NoError(t, cache.Write(ctx, nested, []byte(`{}`), clock.Now().Add(time.Hour)))
	require.NoError(t, os.MkdirAll(filepath.Join(backend.Root(), companyUnit.Dir, "deeper"), 0755))

	clock.Advance(time.Hour)

	_, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.False(t, ok)

	_, statErr := os.Stat(filepath.Join(backend.Root(), companyUnit.Dir))
	assert.True(t, os.IsNotExist(statErr), "whole unit directory should be removed")
}

func TestCache_ExpiredUnitIsDeletedBeforeFreshWrite(t *testing.T) {
	cache, backend, clock := setupFSCache(t)
	ctx := context.Background()

	stale := Unit{Dir: companyUnit.Dir, File: "stale.json"}
	require.NoError(t, cache.Write(ctx, stale, []byte(`"old"`), clock.Now().Add(time.Minute)))
	clock.Advance(2 * time.Minute)

	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`"new"`), time.Time{}))

	_, err := os.Stat(filepath.Join(backend.Root(), stale.Dir, stale.File))
	assert.True(t, os.IsNotExist(err), "stale sibling should be gone")

	data, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"new"`, string(data))
}

func TestCache_UnitWithoutMarkerNeverExpires(t *testing.T) {
	cache, backend, clock := setupFSCache(t)
	ctx := context.Background()

	dir := filepath.Join(backend.Root(), companyUnit.Dir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, companyUnit.File), []byte(`1`), 0644))

	clock.Advance(365 * 24 * time.Hour)

	_, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.True(t, ok)
}

// failingBackend fails writes whose name ends with suffix.
type failingBackend struct {
	Backend
	suffix string
}

func (b *failingBackend) WriteFile(ctx context.Context, name string, data []byte) error {
	if strings.HasSuffix(name, b.suffix) {
		return errors.New("disk full")
	}
	return b.Backend.WriteFile(ctx, name, data)
}

func TestCache_FailedMarkerWriteLeavesNoContent(t *testing.T) {
	_, backend, clock := setupFSCache(t)
	cache := NewCache(&failingBackend{Backend: backend, suffix: MarkerFile}, nil, zerolog.Nop(), WithClock(clock.Now))
	ctx := context.Background()

	err := cache.Write(ctx, companyUnit, []byte(`"stale"`), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge marker")

	clock.Advance(5 * 365 * 24 * time.Hour)

	data, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestCache_FailedContentWriteKeepsMarker(t *testing.T) {
	_, backend, clock := setupFSCache(t)
	cache := NewCache(&failingBackend{Backend: backend, suffix: companyUnit.File}, nil, zerolog.Nop(), WithClock(clock.Now))
	ctx := context.Background()

	require.Error(t, cache.Write(ctx, companyUnit, []byte(`1`), clock.Now().Add(time.Hour)))

	_, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(backend.Root(), companyUnit.Dir, MarkerFile))
	assert.NoError(t, err)

	clock.Advance(2 * time.Hour)
	purged, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestCache_CorruptMarkerCountsAsExpired(t *testing.T) {
	cache, backend, _ := setupFSCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`1`), time.Time{}))
	require.NoError(t, os.WriteFile(filepath.Join(backend.Root(), companyUnit.Dir, MarkerFile), []byte("garbage"), 0644))

	_, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Prune(t *testing.T) {
	cache, _, clock := setupFSCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`1`), clock.Now().Add(time.Hour)))

	removed, err := cache.Prune(ctx, companyUnit.Dir)
	require.NoError(t, err)
	assert.False(t, removed)

	clock.Advance(2 * time.Hour)

	removed, err = cache.Prune(ctx, companyUnit.Dir)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = cache.Prune(ctx, companyUnit.Dir)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCache_Sweep(t *testing.T) {
	cache, _, clock := setupFSCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Write(ctx, Unit{Dir: "ft/securities/A", File: "s.json"}, []byte(`1`), clock.Now().Add(time.Hour)))
	require.NoError(t, cache.Write(ctx, Unit{Dir: "ft/securities/B", File: "s.json"}, []byte(`1`), clock.Now().Add(3*time.Hour)))
	require.NoError(t, cache.Write(ctx, Unit{Dir: "ft/key", File: "key.txt"}, []byte(`k`), clock.Now().Add(time.Hour)))

	clock.Advance(2 * time.Hour)

	purged, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	_, ok, err := cache.Read(ctx, Unit{Dir: "ft/securities/B", File: "s.json"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_JSONAndText(t *testing.T) {
	cache, _, _ := setupFSCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, cache.WriteJSON(ctx, companyUnit, payload{Name: "Realty Income"}, time.Time{}))

	var got payload
	ok, err := cache.ReadJSON(ctx, companyUnit, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Realty Income", got.Name)

	keyUnit := Unit{Dir: "ft/key", File: "key.txt"}
	require.NoError(t, cache.WriteText(ctx, keyUnit, "abc123", NextDay(time.Now())))
	text, ok, err := cache.ReadText(ctx, keyUnit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", text)
}

func TestCache_ReadJSONIgnoresUndecodableContent(t *testing.T) {
	cache, _, _ := setupFSCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`not json`), time.Time{}))

	var got map[string]interface{}
	ok, err := cache.ReadJSON(ctx, companyUnit, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_RejectsUnsafeUnits(t *testing.T) {
	cache, _, _ := setupFSCache(t)
	ctx := context.Background()

	bad := []Unit{
		{Dir: "../escape", File: "a.json"},
		{Dir: "/abs", File: "a.json"},
		{Dir: "ok", File: "../a.json"},
		{Dir: "ok", File: MarkerFile},
		{Dir: "", File: "a.json"},
		{Dir: "a/./b", File: "a.json"},
	}
	for _, u := range bad {
		_, _, err := cache.Read(ctx, u)
		assert.Error(t, err, u.String())
		assert.Error(t, cache.Write(ctx, u, []byte(`1`), time.Time{}), u.String())
	}
}

func TestCache_ConcurrentWritersSameUnit(t *testing.T) {
	cache, _, _ := setupFSCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Write(ctx, companyUnit, []byte(`"same"`), time.Time{}))
		}()
	}
	wg.Wait()

	data, ok, err := cache.Read(ctx, companyUnit)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"same"`, string(data))
}

func TestCleanupJob(t *testing.T) {
	cache, _, clock := setupFSCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Write(ctx, companyUnit, []byte(`1`), clock.Now().Add(time.Minute)))
	clock.Advance(time.Hour)

	job := NewCleanupJob(cache, zerolog.Nop())
	assert.Equal(t, "content_cache_cleanup", job.Name())

	purged, err := job.RunContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.NoError(t, job.Run())
}
