package project

import (
	"context"

	"github.com/ganot/forge-registry/internal/domain/activity"
)

// Store provides versioned persistence for the registry.
type Store interface {
	Load(ctx context.Context) (*Registry, error)
	// Save fails with an error wrapping repository.ErrConflict when the
	// stored version no longer matches reg.Version.
	Save(ctx context.Context, reg *Registry) error
}

// EventLogger appends audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, event *activity.Event) error
}
