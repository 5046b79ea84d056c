package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ganot/forge-registry/internal/repository"
)

// document is a JSON value of type T stored under a single blob key.
type document[T any] struct {
	blobs repository.BlobStore
	key   string
}

// load returns the stored value and its version. A missing key yields a
// zero value at version 0.
func (d document[T]) load(ctx context.Context) (*T, int64, error) {
	blob, err := d.blobs.Get(ctx, d.key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return new(T), 0, nil
		}
		return nil, 0, fmt.Errorf("reading %s: %w", d.key, err)
	}
	v := new(T)
	if len(blob.Data) > 0 {
		if err := json.Unmarshal(blob.Data, v); err != nil {
			return nil, 0, fmt.Errorf("decoding %s: %w", d.key, err)
		}
	}
	return v, blob.Version, nil
}

// save writes v if the stored version still equals version.
func (d document[T]) save(ctx context.Context, v *T, version int64) (int64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", d.key, err)
	}
	next, err := d.blobs.Put(ctx, d.key, data, version)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("saving %s: %w", d.key, ErrConcurrencyConflict)
		}
		return 0, fmt.Errorf("saving %s: %w", d.key, err)
	}
	return next, nil
}
