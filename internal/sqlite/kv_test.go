package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ganot/forge-registry/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestKVStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(NewTestDB(t))

	_, err := store.Get(ctx, "registry")
	require.ErrorIs(t, err, repository.ErrNotFound)

	version, err := store.Put(ctx, "registry", []byte(`{"a":1}`), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	version, err = store.Put(ctx, "registry", []byte(`{"a":2}`), 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	blob, err := store.Get(ctx, "registry")
	require.NoError(t, err)
	require.Equal(t, int64(2), blob.Version)
	require.JSONEq(t, `{"a":2}`, string(blob.Data))
}

func TestKVStore_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(NewTestDB(t))

	_, err := store.Put(ctx, "registry", []byte(`1`), 0)
	require.NoError(t, err)

	_, err = store.Put(ctx, "registry", []byte(`2`), 0)
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = store.Put(ctx, "registry", []byte(`3`), 7)
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = store.Put(ctx, "missing", []byte(`3`), 1)
	require.ErrorIs(t, err, repository.ErrConflict)

	blob, err := store.Get(ctx, "registry")
	require.NoError(t, err)
	require.Equal(t, "1", string(blob.Data))
}

func TestKVStore_ConcurrentWritersOneWins(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(NewTestDB(t))
	_, err := store.Put(ctx, "registry", []byte(`0`), 0)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Put(ctx, "registry", []byte(`1`), 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, repository.ErrConflict)
	}
	require.Equal(t, 1, wins)

	blob, err := store.Get(ctx, "registry")
	require.NoError(t, err)
	require.Equal(t, int64(2), blob.Version)
}

func TestKVStore_CacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewKVStore(NewTestDB(t)).WithClock(func() time.Time { return now })

	require.NoError(t, store.PutCached(ctx, "identity:abc", []byte(`alice`), 10*time.Minute))
	data, err := store.GetCached(ctx, "identity:abc")
	require.NoError(t, err)
	require.Equal(t, "alice", string(data))

	require.NoError(t, store.PutCached(ctx, "identity:abc", []byte(`alice2`), 10*time.Minute))
	data, err = store.GetCached(ctx, "identity:abc")
	require.NoError(t, err)
	require.Equal(t, "alice2", string(data))

	now = now.Add(11 * time.Minute)
	_, err = store.GetCached(ctx, "identity:abc")
	require.ErrorIs(t, err, repository.ErrNotFound)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}
