package lookupcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	testingpkg "github.com/aristath/dividends/internal/testing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type storeFixture struct {
	store   Store
	advance func(time.Duration)
	clock   *fakeClock
}

func newFixtures(t *testing.T) map[string]storeFixture {
	t.Helper()
	fixtures := make(map[string]storeFixture)

	{
		clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
		fixtures["memory"] = storeFixture{
			store:   NewMemoryStore(clock.Now),
			advance: func(d time.Duration) { clock.now = clock.now.Add(d) },
			clock:   clock,
		}
	}
	{
		clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
		db, cleanup := testingpkg.NewTestDB(t, "lookup_cache")
		t.Cleanup(cleanup)
		store := NewSQLiteStore(db)
		store.now = clock.Now
		fixtures["sqlite"] = storeFixture{
			store:   store,
			advance: func(d time.Duration) { clock.now = clock.now.Add(d) },
			clock:   clock,
		}
	}
	{
		clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		store := NewRedisStore(client, "test:")
		store.now = clock.Now
		fixtures["redis"] = storeFixture{
			store: store,
			advance: func(d time.Duration) {
				clock.now = clock.now.Add(d)
				mr.FastForward(d)
			},
			clock: clock,
		}
	}
	return fixtures
}

func TestStores_SetGet(t *testing.T) {
	for name, fx := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := fx.store.Get(ctx, "instrument-by-isin:US7561091049")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, fx.store.Set(ctx, "instrument-by-isin:US7561091049", []byte(`{"id":"x"}`), NoExpiry))

			entry, ok, err := fx.store.Get(ctx, "instrument-by-isin:US7561091049")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"id":"x"}`, string(entry.Value))
			assert.True(t, entry.ExpiresAt.IsZero())
		})
	}
}

func TestStores_TTLExpiry(t *testing.T) {
	for name, fx := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, fx.store.Set(ctx, "dividend:abc", []byte(`1`), time.Hour))

			entry, ok, err := fx.store.Get(ctx, "dividend:abc")
			require.NoError(t, err)
			require.True(t, ok)
			assert.WithinDuration(t, fx.clock.now.Add(time.Hour), entry.ExpiresAt, time.Second)

			fx.advance(30 * time.Minute)
			entry, ok, err = fx.store.Get(ctx, "dividend:abc")
			require.NoError(t, err)
			require.True(t, ok)
			assert.WithinDuration(t, fx.clock.now.Add(30*time.Minute), entry.ExpiresAt, time.Second)

			fx.advance(31 * time.Minute)
			_, ok, err = fx.store.Get(ctx, "dividend:abc")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStores_NoExpiryOutlivesTime(t *testing.T) {
	for name, fx := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, fx.store.Set(ctx, "instrument-by-id:abc", []byte(`1`), NoExpiry))

			fx.advance(10 * 365 * 24 * time.Hour)

			_, ok, err := fx.store.Get(ctx, "instrument-by-id:abc")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStores_OverwriteIsIdempotent(t *testing.T) {
	for name, fx := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				require.NoError(t, fx.store.Set(ctx, "k", []byte(`same`), NoExpiry))
			}
			entry, ok, err := fx.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "same", string(entry.Value))

			require.NoError(t, fx.store.Set(ctx, "k", []byte(`other`), time.Minute))
			entry, _, err = fx.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "other", string(entry.Value))
			assert.False(t, entry.ExpiresAt.IsZero())
		})
	}
}

func TestStores_RejectNegativeTTL(t *testing.T) {
	for name, fx := range newFixtures(t) {
		t.Run(name, func(t *testing.T) {
			err := fx.store.Set(context.Background(), "k", []byte(`v`), -time.Second)
			assert.ErrorIs(t, err, ErrNegativeTTL)
		})
	}
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "dividends:")
	require.NoError(t, store.Set(context.Background(), "dividend:abc", []byte(`1`), NoExpiry))

	assert.True(t, mr.Exists("dividends:dividend:abc"))
	assert.Equal(t, "redis", store.Kind())
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client, "")

	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	client.Close()

	_, err = NewRedisClient(context.Background(), "::not a url")
	assert.Error(t, err)
}

func TestSQLiteStore_DeleteExpired(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "lookup_cache")
	defer cleanup()

	clock := &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	store := NewSQLiteStore(db)
	store.now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dividend:a", []byte(`1`), time.Minute))
	require.NoError(t, store.Set(ctx, "dividend:b", []byte(`1`), time.Hour))
	require.NoError(t, store.Set(ctx, "instrument-by-id:a", []byte(`1`), NoExpiry))

	clock.now = clock.now.Add(10 * time.Minute)

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	job := NewCleanupJob(store, testLogger())
	assert.Equal(t, "lookup_cache_cleanup", job.Name())
	assert.NoError(t, job.Run())
}
