package scan

import (
	"context"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/feed"
	"github.com/ganot/forge-registry/internal/github"
	"github.com/ganot/forge-registry/internal/registry"
)

// RegistryStore is the versioned registry with a retrying save.
type RegistryStore interface {
	Load(ctx context.Context) (*project.Registry, error)
	Update(ctx context.Context, task string, base *project.Registry, delta func(*project.Registry) bool) (*project.Registry, registry.SaveResult)
}

// StateStore holds per-repository cooldown bookkeeping.
type StateStore interface {
	Load(ctx context.Context) (*registry.ScanState, error)
	Record(ctx context.Context, task string, base *registry.ScanState, results []registry.SourceResult) (*registry.ScanState, registry.SaveResult)
}

// ArchiveStore holds previously observed feed entries.
type ArchiveStore interface {
	Load(ctx context.Context) (*registry.Archive, error)
	Append(ctx context.Context, msgs []registry.ArchivedMessage) (*registry.Archive, registry.SaveResult)
}

// RepoSource reads repository state. Missing resources yield
// github.ErrNotFound.
type RepoSource interface {
	Snapshot(ctx context.Context, ref project.RepoRef) (*project.Snapshot, error)
	ClosedPullRequests(ctx context.Context, owner, name string) ([]github.PullRequest, error)
	Contributors(ctx context.Context, owner, name string) ([]github.Contributor, error)
	Readme(ctx context.Context, owner, name string) (string, error)
}

// FeedSource reads recent activity feed entries.
type FeedSource interface {
	Recent(ctx context.Context) ([]feed.Entry, error)
}

// Audit writes the audit stream.
type Audit interface {
	LogEvents(ctx context.Context, events []*activity.Event) int
	BackfillTitles(ctx context.Context, limit int, lookup func(projectID string) (string, bool)) (int, error)
}
