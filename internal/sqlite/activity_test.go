package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	repo := NewActivityRepository(db)
	event1 := &activity.Event{
		Type:         activity.TypeProjectCreated,
		Actor:        &activity.Actor{AccountID: "alice", DisplayName: "Alice"},
		ProjectID:    "p1",
		ProjectTitle: "Rocket",
		CreatedAt:    base,
	}
	event2 := &activity.Event{
		Type:         activity.TypeStatusSynced,
		ProjectID:    "p1",
		ProjectTitle: "Rocket",
		Data:         map[string]any{"old_status": "in-progress", "new_status": "done"},
		CreatedAt:    base.Add(time.Second),
	}

	require.NoError(t, repo.Log(ctx, event1))
	require.NoError(t, repo.Log(ctx, event2))
	require.NotZero(t, event1.ID)

	events, err := repo.List(ctx, activity.ListOptions{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, activity.TypeStatusSynced, events[0].Type)
	require.Nil(t, events[0].Actor)
	require.Equal(t, "done", events[0].Data["new_status"])
	require.Equal(t, activity.TypeProjectCreated, events[1].Type)
	require.Equal(t, "Alice", events[1].Actor.DisplayName)
	require.True(t, events[1].CreatedAt.Equal(base))
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	for i, e := range []activity.Event{
		{Type: activity.TypeMentioned, ProjectID: "p1"},
		{Type: activity.TypeMentioned, ProjectID: "p2"},
		{Type: activity.TypeRated, ProjectID: "p1"},
	} {
		e := e
		e.CreatedAt = time.Unix(int64(1000+i), 0)
		require.NoError(t, repo.Log(ctx, &e))
	}

	mentioned := activity.TypeMentioned
	events, err := repo.List(ctx, activity.ListOptions{Type: &mentioned})
	require.NoError(t, err)
	require.Len(t, events, 2)

	events, err = repo.List(ctx, activity.ListOptions{ProjectID: "p1", Type: &mentioned})
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = repo.List(ctx, activity.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "p2", events[0].ProjectID)

	events, err = repo.List(ctx, activity.ListOptions{Offset: 2})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, activity.TypeMentioned, events[0].Type)
	require.Equal(t, "p1", events[0].ProjectID)
}

func TestActivityRepository_Backfill(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	untitled := &activity.Event{Type: activity.TypeMentioned, ProjectID: "p1"}
	titled := &activity.Event{Type: activity.TypeMentioned, ProjectID: "p2", ProjectTitle: "Two"}
	require.NoError(t, repo.Log(ctx, untitled))
	require.NoError(t, repo.Log(ctx, titled))

	events, err := repo.ListUntitled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, untitled.ID, events[0].ID)

	require.NoError(t, repo.SetTitle(ctx, untitled.ID, "One"))
	events, err = repo.ListUntitled(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}
