package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchive_AddOrdersDedupesAndCaps(t *testing.T) {
	a := &Archive{}
	require.Equal(t, 3, a.Add([]ArchivedMessage{{Timestamp: 1}, {Timestamp: 3}, {Timestamp: 2}}, 4))
	require.Equal(t, []int64{3, 2, 1}, timestamps(a))

	require.Equal(t, 2, a.Add([]ArchivedMessage{{Timestamp: 3}, {Timestamp: 5}, {Timestamp: 4}}, 4))
	require.Equal(t, []int64{5, 4, 3, 2}, timestamps(a))

	require.Zero(t, a.Add([]ArchivedMessage{{Timestamp: 5}}, 4))
}

func TestArchiveStore_Append(t *testing.T) {
	ctx := context.Background()
	store := NewArchiveStore(newMemBlobs(), 10, nil, fastRetry())

	_, result := store.Append(ctx, []ArchivedMessage{{Timestamp: 10, Text: "hello"}})
	require.Equal(t, OutcomeApplied, result.Outcome)
	_, result = store.Append(ctx, []ArchivedMessage{{Timestamp: 10, Text: "hello"}})
	require.Equal(t, OutcomeNoChange, result.Outcome)

	a, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, a.Messages, 1)
}

func timestamps(a *Archive) []int64 {
	out := make([]int64, 0, len(a.Messages))
	for _, m := range a.Messages {
		out = append(out, m.Timestamp)
	}
	return out
}
