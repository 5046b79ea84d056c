package registry

import (
	"context"
	"sync"

	"github.com/ganot/forge-registry/internal/repository"
)

// memBlobs is an in-memory compare-and-swap blob store.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string]repository.Blob
	puts  int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string]repository.Blob{}}
}

func (m *memBlobs) Get(ctx context.Context, key string) (*repository.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.Blob{Key: key, Data: append([]byte(nil), b.Data...), Version: b.Version}, nil
}

func (m *memBlobs) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.blobs[key].Version != expectedVersion {
		return 0, repository.ErrConflict
	}
	next := expectedVersion + 1
	m.blobs[key] = repository.Blob{Key: key, Data: append([]byte(nil), data...), Version: next}
	return next, nil
}

// racingBlobs runs a competing write before each of the first races Puts.
type racingBlobs struct {
	*memBlobs
	races int
	race  func(ctx context.Context)
}

func (r *racingBlobs) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	if r.races > 0 {
		r.races--
		r.race(ctx)
	}
	return r.memBlobs.Put(ctx, key, data, expectedVersion)
}
