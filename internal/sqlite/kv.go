package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/forge-registry/internal/repository"
)

// KVStore implements repository.BlobStore and repository.CacheStore.
type KVStore struct {
	db  *DB
	now func() time.Time
}

// NewKVStore creates a new KVStore
func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db, now: time.Now}
}

// WithClock overrides the clock used for timestamps and cache expiry.
func (s *KVStore) WithClock(now func() time.Time) *KVStore {
	s.now = now
	return s
}

// Get returns the current value and version for key
func (s *KVStore) Get(ctx context.Context, key string) (*repository.Blob, error) {
	blob := &repository.Blob{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM kv_store WHERE key = ?`, key,
	).Scan(&blob.Data, &blob.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return blob, nil
}

// Put writes value when the stored version equals expectedVersion
func (s *KVStore) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	now := s.now().UnixMilli()

	if expectedVersion == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO kv_store (key, value, version, updated_at) VALUES (?, ?, 1, ?)`,
			key, data, now)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, repository.ErrConflict
			}
			return 0, fmt.Errorf("failed to insert %s: %w", key, err)
		}
		return 1, nil
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE kv_store SET value = ?, version = version + 1, updated_at = ?
		 WHERE key = ? AND version = ?`,
		data, now, key, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update of %s: %w", key, err)
	}
	if rows == 0 {
		return 0, repository.ErrConflict
	}
	return expectedVersion + 1, nil
}

// GetCached returns an unexpired cache entry
func (s *KVStore) GetCached(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_cache WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixMilli(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cached %s: %w", key, err)
	}
	return data, nil
}

// PutCached stores a cache entry that expires after ttl
func (s *KVStore) PutCached(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, data, now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes expired cache entries and returns how many were removed
func (s *KVStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_cache WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return result.RowsAffected()
}
