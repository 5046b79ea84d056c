package mocks

import (
	"context"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/repository"
	"github.com/stretchr/testify/mock"
)

// BlobStore is a mock for repository.BlobStore.
type BlobStore struct {
	mock.Mock
}

func (m *BlobStore) Get(ctx context.Context, key string) (*repository.Blob, error) {
	args := m.Called(ctx, key)
	if blob, ok := args.Get(0).(*repository.Blob); ok {
		return blob, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BlobStore) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, key, data, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

// CacheStore is a mock for repository.CacheStore.
type CacheStore struct {
	mock.Mock
}

func (m *CacheStore) GetCached(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CacheStore) PutCached(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, data, ttl)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, event *activity.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ListUntitled(ctx context.Context, limit int) ([]activity.Event, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]activity.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) SetTitle(ctx context.Context, id int64, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}
