package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScanState_Apply(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	st := &ScanState{}

	require.True(t, st.Apply([]SourceResult{{Key: "acme/rocket", Kind: ScanWebsite, At: t0}}))
	require.True(t, st.Apply([]SourceResult{{Key: "acme/rocket", Kind: ScanWebsite, At: t0.Add(time.Hour)}}))
	require.Equal(t, 2, st.Source("acme/rocket", ScanWebsite).Failures)

	// re-applying the same attempt is a no-op
	require.False(t, st.Apply([]SourceResult{{Key: "acme/rocket", Kind: ScanWebsite, At: t0.Add(time.Hour)}}))

	require.True(t, st.Apply([]SourceResult{{Key: "acme/rocket", Kind: ScanWebsite, At: t0.Add(2 * time.Hour), Success: true}}))
	src := st.Source("acme/rocket", ScanWebsite)
	require.Zero(t, src.Failures)
	require.Equal(t, t0.Add(2*time.Hour), src.LastSuccessAt)

	require.True(t, st.Apply([]SourceResult{{Key: "acme/rocket", Kind: ScanWebsite, Reset: true}}))
	require.Equal(t, SourceState{}, st.Source("acme/rocket", ScanWebsite))
	require.False(t, st.Apply([]SourceResult{{Key: "acme/rocket", Kind: ScanWebsite, Reset: true}}))

	require.Equal(t, SourceState{}, st.Source("other/repo", ScanEvents))
}

func TestStateStore_Record(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore(newMemBlobs(), nil, fastRetry())
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, result := store.Record(ctx, "contributors", nil, []SourceResult{{Key: "a/b", Kind: ScanContributors, At: at, Success: true}})
	require.Equal(t, OutcomeApplied, result.Outcome)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Version)
	require.True(t, st.Source("a/b", ScanContributors).LastSuccessAt.Equal(at))

	_, result = store.Record(ctx, "contributors", st, nil)
	require.Equal(t, OutcomeNoChange, result.Outcome)
}
