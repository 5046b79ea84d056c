package repository

import (
	"context"
	"time"
)

// Blob is a versioned value read from a BlobStore.
type Blob struct {
	Key     string
	Data    []byte
	Version int64
}

// BlobStore persists whole documents under a key with a monotonically
// increasing version used for compare-and-swap writes.
type BlobStore interface {
	// Get returns ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) (*Blob, error)
	// Put writes data only if the stored version equals expectedVersion and
	// returns the new version. expectedVersion 0 means the key must not
	// exist yet. A stale expectedVersion yields ErrConflict.
	Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)
}

// CacheStore holds short-lived values that expire after a TTL.
type CacheStore interface {
	// GetCached returns ErrNotFound for missing or expired keys.
	GetCached(ctx context.Context, key string) ([]byte, error)
	PutCached(ctx context.Context, key string, data []byte, ttl time.Duration) error
}
