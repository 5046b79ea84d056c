package activity

import "context"

// Repository provides persistence operations for audit events.
type Repository interface {
	Log(ctx context.Context, event *Event) error
	List(ctx context.Context, opts ListOptions) ([]Event, error)
	// ListUntitled returns events whose project title was never recorded.
	ListUntitled(ctx context.Context, limit int) ([]Event, error)
	SetTitle(ctx context.Context, id int64, title string) error
}
