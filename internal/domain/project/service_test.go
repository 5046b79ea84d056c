package project_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/repository"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory versioned registry with compare-and-swap saves.
type memStore struct {
	mu       sync.Mutex
	data     []byte
	version  int64
	failNext error
}

func (m *memStore) Load(ctx context.Context) (*project.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := &project.Registry{}
	if m.data != nil {
		if err := json.Unmarshal(m.data, reg); err != nil {
			return nil, err
		}
	}
	reg.Version = m.version
	return reg, nil
}

func (m *memStore) Save(ctx context.Context, reg *project.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	if reg.Version != m.version {
		return fmt.Errorf("registry: %w", repository.ErrConflict)
	}
	data, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	m.data = data
	m.version++
	reg.Version = m.version
	return nil
}

type recordingLogger struct {
	events []*activity.Event
}

func (r *recordingLogger) LogEvent(ctx context.Context, event *activity.Event) error {
	r.events = append(r.events, event)
	return nil
}

var (
	alice = project.Account{ID: "alice", DisplayName: "Alice"}
	bob   = project.Account{ID: "bob", DisplayName: "Bob"}
)

func newService(t *testing.T, now *time.Time) (*project.Service, *memStore, *recordingLogger) {
	t.Helper()
	store := &memStore{}
	events := &recordingLogger{}
	svc := project.NewService(store, events, nil).WithClock(func() time.Time { return *now })
	return svc, store, events
}

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, events := newService(t, &now)

	proj, err := svc.Create(ctx, alice, project.CreateRequest{
		Title:         "Rocket Launcher",
		RepositoryURL: "https://github.com/acme/rocket-launcher",
		SearchTerms:   []string{"rl", " RL ", "launcher"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, proj.ID)
	require.Equal(t, project.StatusTodo, proj.Status)
	require.Equal(t, alice, proj.Founder)
	require.Equal(t, alice, proj.Leader.Account)
	require.Contains(t, proj.Contributors, "alice")
	require.Equal(t, []string{"rl", "launcher"}, proj.SearchTerms)

	got, err := svc.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, "Rocket Launcher", got.Title)
	require.Len(t, events.events, 1)
	require.Equal(t, activity.TypeProjectCreated, events.events[0].Type)
}

func TestProjectService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, store, _ := newService(t, &now)

	_, err := svc.Create(ctx, alice, project.CreateRequest{Title: ""})
	require.ErrorIs(t, err, project.ErrInvalidInput)
	_, err = svc.Create(ctx, alice, project.CreateRequest{Title: "x", RepositoryURL: "not a url"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
	_, err = svc.Create(ctx, project.Account{}, project.CreateRequest{Title: "x"})
	require.ErrorIs(t, err, project.ErrInvalidInput)
	require.Zero(t, store.version)
}

func TestProjectService_RateUpserts(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Rated"})
	require.NoError(t, err)

	_, err = svc.Rate(ctx, bob, proj.ID, 2, "meh")
	require.NoError(t, err)
	_, err = svc.Rate(ctx, alice, proj.ID, 5, "")
	require.NoError(t, err)
	got, err := svc.Rate(ctx, bob, proj.ID, 4, "better now")
	require.NoError(t, err)

	require.Len(t, got.Ratings, 2)
	require.Equal(t, 2, got.Reputation.Count)
	require.Equal(t, 4.5, got.Reputation.Average)

	_, err = svc.Rate(ctx, bob, proj.ID, 6, "")
	require.ErrorIs(t, err, project.ErrInvalidInput)
	_, err = svc.Rate(ctx, bob, proj.ID, 0, "")
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_ReputationRounding(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Rounded"})
	require.NoError(t, err)

	for i, score := range []int{5, 4, 4} {
		_, err = svc.Rate(ctx, project.Account{ID: fmt.Sprintf("u%d", i)}, proj.ID, score, "")
		require.NoError(t, err)
	}
	got, err := svc.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, 4.3, got.Reputation.Average)
	require.Equal(t, 3, got.Reputation.Count)
}

func TestProjectService_ClaimLeadership(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	svc, _, events := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Steward"})
	require.NoError(t, err)

	now = start.Add(10 * 24 * time.Hour)
	_, err = svc.ClaimLeadership(ctx, bob, proj.ID)
	var activeErr *project.LeaderActiveError
	require.ErrorAs(t, err, &activeErr)
	require.Equal(t, 10, activeErr.DaysInactive)

	now = start.Add(31 * 24 * time.Hour)
	got, err := svc.ClaimLeadership(ctx, bob, proj.ID)
	require.NoError(t, err)
	require.Equal(t, bob, got.Leader.Account)
	require.Equal(t, now, got.Leader.AssignedAt)

	last := events.events[len(events.events)-1]
	require.Equal(t, activity.TypeLeadershipClaimed, last.Type)
	require.Equal(t, "alice", last.Data["previous_leader"])
	require.Equal(t, 31, last.Data["days_inactive"])
}

func TestProjectService_LeaderActivityResetsTakeoverClock(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Busy"})
	require.NoError(t, err)

	now = start.Add(25 * 24 * time.Hour)
	_, err = svc.SetGoal(ctx, alice, proj.ID, "ship v1")
	require.NoError(t, err)

	now = start.Add(40 * 24 * time.Hour)
	_, err = svc.ClaimLeadership(ctx, bob, proj.ID)
	var activeErr *project.LeaderActiveError
	require.ErrorAs(t, err, &activeErr)
	require.Equal(t, 15, activeErr.DaysInactive)
}

func TestProjectService_TransferLeadership(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Handoff"})
	require.NoError(t, err)

	_, err = svc.TransferLeadership(ctx, bob, proj.ID, bob)
	require.ErrorIs(t, err, project.ErrNotLeader)

	got, err := svc.TransferLeadership(ctx, alice, proj.ID, bob)
	require.NoError(t, err)
	require.Equal(t, bob, got.Leader.Account)
	require.Contains(t, got.Contributors, "bob")
}

func TestProjectService_WorkClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Claimed"})
	require.NoError(t, err)

	_, err = svc.ClaimWork(ctx, bob, proj.ID)
	require.NoError(t, err)
	_, err = svc.ClaimWork(ctx, alice, proj.ID)
	require.ErrorIs(t, err, project.ErrAlreadyClaimed)
	_, err = svc.ReleaseWork(ctx, alice, proj.ID)
	require.ErrorIs(t, err, project.ErrNotClaimHolder)

	got, err := svc.ReleaseWork(ctx, bob, proj.ID)
	require.NoError(t, err)
	require.Nil(t, got.ClaimedBy)
}

func TestProjectService_GoalsArchive(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Goals"})
	require.NoError(t, err)

	_, err = svc.CompleteGoal(ctx, alice, proj.ID)
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = svc.SetGoal(ctx, alice, proj.ID, "first")
	require.NoError(t, err)
	_, err = svc.CompleteGoal(ctx, alice, proj.ID)
	require.NoError(t, err)
	got, err := svc.SetGoal(ctx, alice, proj.ID, "second")
	require.NoError(t, err)

	require.Len(t, got.Goals, 1)
	require.Equal(t, "second", got.Goals[0].Title)
	require.Len(t, got.GoalHistory, 1)
	require.True(t, got.GoalHistory[0].Completed)
}

func TestProjectService_SetStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, events := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Status"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, alice, proj.ID, project.StatusInProgress)
	require.ErrorIs(t, err, project.ErrInvalidInput)

	got, err := svc.SetStatus(ctx, bob, proj.ID, project.StatusShipped)
	require.NoError(t, err)
	require.Equal(t, project.StatusShipped, got.Status)
	require.True(t, got.StatusManual)
	last := events.events[len(events.events)-1]
	require.Equal(t, "todo", last.Data["old_status"])
	require.Equal(t, "shipped", last.Data["new_status"])
}

func TestProjectService_UpdateKeepsRepositoryKind(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{
		Title:         "PR project",
		RepositoryURL: "https://github.com/acme/rocket/pull/1",
	})
	require.NoError(t, err)

	repo := "https://github.com/acme/rocket"
	_, err = svc.Update(ctx, alice, proj.ID, project.UpdateRequest{RepositoryURL: &repo})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	other := "https://github.com/acme/rocket/pull/2"
	title := "Renamed"
	got, err := svc.Update(ctx, alice, proj.ID, project.UpdateRequest{RepositoryURL: &other, Title: &title})
	require.NoError(t, err)
	require.Equal(t, other, got.RepositoryURL)
	require.Equal(t, "Renamed", got.Title)
}

func TestProjectService_AddDeliverable(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Deliver"})
	require.NoError(t, err)

	_, err = svc.AddDeliverable(ctx, bob, proj.ID, "javascript:alert(1)", "")
	require.ErrorIs(t, err, project.ErrInvalidInput)

	got, err := svc.AddDeliverable(ctx, bob, proj.ID, "https://example.org/release", "v1")
	require.NoError(t, err)
	require.Len(t, got.Deliverables, 1)
	require.Contains(t, got.Contributors, "bob")
}

func TestProjectService_ConflictSurfaces(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, store, _ := newService(t, &now)
	proj, err := svc.Create(ctx, alice, project.CreateRequest{Title: "Racy"})
	require.NoError(t, err)

	store.failNext = fmt.Errorf("registry: %w", repository.ErrConflict)
	_, err = svc.Rate(ctx, bob, proj.ID, 3, "")
	require.ErrorIs(t, err, project.ErrConflict)

	got, err := svc.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Empty(t, got.Ratings)
}

func TestProjectService_ListFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _, _ := newService(t, &now)
	a, err := svc.Create(ctx, alice, project.CreateRequest{Title: "A"})
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = svc.Create(ctx, alice, project.CreateRequest{Title: "B"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, alice, a.ID, project.StatusDone)
	require.NoError(t, err)

	all, err := svc.List(ctx, project.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "A", all[0].Title)

	done, err := svc.List(ctx, project.ListFilter{Status: project.StatusDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
}

func TestProjectService_NotFound(t *testing.T) {
	now := time.Now()
	svc, _, _ := newService(t, &now)
	_, err := svc.Rate(context.Background(), alice, "missing", 3, "")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}
