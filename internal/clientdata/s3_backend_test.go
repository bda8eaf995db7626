package clientdata

import (
	"context"
	"errors"
	"testing"
	"time"

	testingpkg "github.com/aristath/dividends/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Backend_KeysAreRootedAtPrefix(t *testing.T) {
	store := testingpkg.NewMockObjectStore()
	backend := NewS3Backend(store, "/content-cache/")
	ctx := context.Background()

	require.NoError(t, backend.WriteFile(ctx, "ft/securities/A/s.json", []byte(`1`)))
	assert.Equal(t, []string{"content-cache/ft/securities/A/s.json"}, store.Keys())

	names, err := backend.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ft/securities/A/s.json"}, names)

	_, err = backend.ReadFile(ctx, "ft/securities/B/s.json")
	assert.True(t, isNotExist(err))
}

func TestS3Backend_RemoveAllOnlyTouchesUnit(t *testing.T) {
	store := testingpkg.NewMockObjectStore()
	backend := NewS3Backend(store, "cache")
	ctx := context.Background()

	require.NoError(t, backend.WriteFile(ctx, "ft/A/s.json", []byte(`1`)))
	require.NoError(t, backend.WriteFile(ctx, "ft/A/nested/x.json", []byte(`1`)))
	require.NoError(t, backend.WriteFile(ctx, "ft/AB/s.json", []byte(`1`)))

	require.NoError(t, backend.RemoveAll(ctx, "ft/A"))
	assert.Equal(t, []string{"cache/ft/AB/s.json"}, store.Keys())

	require.NoError(t, backend.RemoveAll(ctx, "ft/missing"))
}

func TestCache_OverS3Backend(t *testing.T) {
	store := testingpkg.NewMockObjectStore()
	clock := &testClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(NewS3Backend(store, "content-cache"), NextDay, zerolog.Nop(), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, cache.WriteText(ctx, Unit{Dir: "ft/key", File: "key.txt"}, "demo", time.Time{}))
	assert.Equal(t, "s3", cache.Backend())

	text, ok, err := cache.ReadText(ctx, Unit{Dir: "ft/key", File: "key.txt"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "demo", text)

	clock.Advance(24 * time.Hour)

	purged, err := cache.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Empty(t, store.Keys())
}

func TestCache_StorageFailureSurfaces(t *testing.T) {
	store := testingpkg.NewMockObjectStore()
	store.SetError(errors.New("bucket unavailable"))
	cache := NewCache(NewS3Backend(store, ""), nil, zerolog.Nop())

	_, _, err := cache.Read(context.Background(), companyUnit)
	assert.ErrorContains(t, err, "bucket unavailable")
	assert.Error(t, cache.Write(context.Background(), companyUnit, []byte(`1`), time.Time{}))
}
