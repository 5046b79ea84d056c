package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/ganot/forge-registry/internal/repository"
)

// ScanKind names a per-repository background scan.
type ScanKind string

const (
	ScanContributors ScanKind = "contributors"
	ScanEvents       ScanKind = "events"
	ScanWebsite      ScanKind = "website"
)

// SourceState is the cooldown bookkeeping for one repository and scan kind.
type SourceState struct {
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
	Failures      int       `json:"failures,omitempty"`
}

// ScanState is the scan bookkeeping document.
type ScanState struct {
	Sources map[string]map[ScanKind]SourceState `json:"sources"`
	Version int64                               `json:"-"`
}

// Source returns the state for key and kind, zero if never scanned.
func (s *ScanState) Source(key string, kind ScanKind) SourceState {
	if s.Sources == nil {
		return SourceState{}
	}
	return s.Sources[key][kind]
}

func (s *ScanState) set(key string, kind ScanKind, st SourceState) {
	if s.Sources == nil {
		s.Sources = map[string]map[ScanKind]SourceState{}
	}
	if s.Sources[key] == nil {
		s.Sources[key] = map[ScanKind]SourceState{}
	}
	s.Sources[key][kind] = st
}

// SourceResult is the outcome of one scan attempt, applied by Apply.
type SourceResult struct {
	Key     string
	Kind    ScanKind
	At      time.Time
	Success bool
	// Reset clears all bookkeeping so the next scan runs immediately.
	Reset bool
}

// Apply records results and reports whether anything changed.
func (s *ScanState) Apply(results []SourceResult) bool {
	changed := false
	for _, r := range results {
		st := s.Source(r.Key, r.Kind)
		switch {
		case r.Reset:
			if st == (SourceState{}) {
				continue
			}
			st = SourceState{}
		case r.Success:
			if st.LastAttemptAt.Equal(r.At) && st.LastSuccessAt.Equal(r.At) && st.Failures == 0 {
				continue
			}
			st = SourceState{LastAttemptAt: r.At, LastSuccessAt: r.At}
		default:
			if st.LastAttemptAt.Equal(r.At) {
				continue
			}
			st.LastAttemptAt = r.At
			st.Failures++
		}
		s.set(r.Key, r.Kind, st)
		changed = true
	}
	return changed
}

// StateStore is the versioned store for the scan state document.
type StateStore struct {
	doc    document[ScanState]
	opts   options
	logger *slog.Logger
}

// NewStateStore creates a scan state store on top of a blob store.
func NewStateStore(blobs repository.BlobStore, logger *slog.Logger, opts ...Option) *StateStore {
	o := buildOptions(ScanStateKey, opts)
	return &StateStore{
		doc:    document[ScanState]{blobs: blobs, key: o.key},
		opts:   o,
		logger: discardIfNil(logger),
	}
}

// Load reads the scan state.
func (s *StateStore) Load(ctx context.Context) (*ScanState, error) {
	st, version, err := s.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	st.Version = version
	return st, nil
}

// Save persists st if unchanged since load.
func (s *StateStore) Save(ctx context.Context, st *ScanState) error {
	next, err := s.doc.save(ctx, st, st.Version)
	if err != nil {
		return err
	}
	st.Version = next
	return nil
}

// Record applies results with the retrying save.
func (s *StateStore) Record(ctx context.Context, task string, base *ScanState, results []SourceResult) (*ScanState, SaveResult) {
	if len(results) == 0 {
		return base, SaveResult{Outcome: OutcomeNoChange}
	}
	return retrySave(ctx, s.logger, s.opts.retry, task, base, s.Load, s.Save, func(st *ScanState) bool {
		return st.Apply(results)
	})
}
