package scan

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/feed"
	"github.com/ganot/forge-registry/internal/github"
	"github.com/ganot/forge-registry/internal/registry"
	"github.com/ganot/forge-registry/internal/repository"
	"github.com/ganot/forge-registry/internal/sqlite"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func refKey(owner, name string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, name, number)
}

type stubRepos struct {
	snapshots    map[string]*project.Snapshot
	prs          map[string][]github.PullRequest
	contributors map[string][]github.Contributor
	readmes      map[string]string
	readmeErr    error
	onCall       func()
}

func newStubRepos() *stubRepos {
	return &stubRepos{
		snapshots:    map[string]*project.Snapshot{},
		prs:          map[string][]github.PullRequest{},
		contributors: map[string][]github.Contributor{},
		readmes:      map[string]string{},
	}
}

func (s *stubRepos) tick() {
	if s.onCall != nil {
		s.onCall()
	}
}

func (s *stubRepos) Snapshot(_ context.Context, ref project.RepoRef) (*project.Snapshot, error) {
	s.tick()
	snap, ok := s.snapshots[refKey(ref.Owner, ref.Name, ref.Number)]
	if !ok {
		return nil, github.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (s *stubRepos) ClosedPullRequests(_ context.Context, owner, name string) ([]github.PullRequest, error) {
	s.tick()
	return s.prs[owner+"/"+name], nil
}

func (s *stubRepos) Contributors(_ context.Context, owner, name string) ([]github.Contributor, error) {
	s.tick()
	return s.contributors[owner+"/"+name], nil
}

func (s *stubRepos) Readme(_ context.Context, owner, name string) (string, error) {
	s.tick()
	if s.readmeErr != nil {
		return "", s.readmeErr
	}
	readme, ok := s.readmes[owner+"/"+name]
	if !ok {
		return "", github.ErrNotFound
	}
	return readme, nil
}

type stubFeed struct {
	entries []feed.Entry
	err     error
}

func (s *stubFeed) Recent(context.Context) ([]feed.Entry, error) {
	return s.entries, s.err
}

// racingBlobs runs a competing write before the first races registry Puts.
type racingBlobs struct {
	repository.BlobStore
	mu    sync.Mutex
	races int
	race  func(ctx context.Context)
}

func (r *racingBlobs) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	fire := r.races > 0 && key == registry.RegistryKey
	if fire {
		r.races--
	}
	r.mu.Unlock()
	if fire {
		r.race(ctx)
	}
	return r.BlobStore.Put(ctx, key, data, expectedVersion)
}

type harness struct {
	kv       *sqlite.KVStore
	blobs    *racingBlobs
	store    *registry.Store
	state    *registry.StateStore
	archive  *registry.ArchiveStore
	activity *sqlite.ActivityRepository
	repos    *stubRepos
	feed     *stubFeed
	clock    *fakeClock
	metrics  *Metrics
	cfg      Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: t0}
	kv := sqlite.NewKVStore(db).WithClock(clock.Now)
	blobs := &racingBlobs{BlobStore: kv}
	retry := registry.WithRetryPolicy(registry.RetryPolicy{MaxAttempts: 3})

	cfg := DefaultConfig()
	cfg.Reserve = 0
	cfg.SelfDomain = "forge.example.net"

	return &harness{
		kv:       kv,
		blobs:    blobs,
		store:    registry.NewStore(blobs, nil, retry, registry.WithClock(clock.Now)),
		state:    registry.NewStateStore(blobs, nil, retry),
		archive:  registry.NewArchiveStore(blobs, 100, nil, retry),
		activity: sqlite.NewActivityRepository(db),
		repos:    newStubRepos(),
		feed:     &stubFeed{},
		clock:    clock,
		metrics:  NewMetrics(prometheus.NewRegistry()),
		cfg:      cfg,
	}
}

func (h *harness) orchestrator() *Orchestrator {
	return New(h.cfg, Deps{
		Registry: h.store,
		State:    h.state,
		Archive:  h.archive,
		Repos:    h.repos,
		Feed:     h.feed,
		Audit:    activity.NewService(h.activity, nil),
		Metrics:  h.metrics,
		Now:      h.clock.Now,
	})
}

func (h *harness) seed(t *testing.T, projects ...*project.Project) {
	t.Helper()
	ctx := context.Background()
	reg, err := h.store.Load(ctx)
	require.NoError(t, err)
	for _, p := range projects {
		if p.Status == "" {
			p.Status = project.StatusTodo
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = t0.Add(-48 * time.Hour)
			p.UpdatedAt = p.CreatedAt
		}
		reg.Projects = append(reg.Projects, p)
	}
	require.NoError(t, h.store.Save(ctx, reg))
}

func (h *harness) load(t *testing.T) *project.Registry {
	t.Helper()
	reg, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return reg
}

func (h *harness) events(t *testing.T, typ activity.EventType) []activity.Event {
	t.Helper()
	events, err := h.activity.List(context.Background(), activity.ListOptions{Type: &typ})
	require.NoError(t, err)
	return events
}

func newProject(id, title, repoURL string) *project.Project {
	return &project.Project{
		ID:            id,
		Title:         title,
		RepositoryURL: repoURL,
		Founder:       project.Account{ID: "alice", DisplayName: "Alice"},
	}
}
