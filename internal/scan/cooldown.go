package scan

import (
	"time"

	"github.com/ganot/forge-registry/internal/registry"
)

// Policy is the per-repository cooldown for one scan kind.
type Policy struct {
	Interval time.Duration
	// BackoffAfter consecutive failures switch to BackoffInterval.
	BackoffAfter    int
	BackoffInterval time.Duration
}

// Due reports whether a repository with state st may be scanned at now.
func (p Policy) Due(st registry.SourceState, now time.Time) bool {
	if st.LastAttemptAt.IsZero() {
		return true
	}
	wait := p.Interval
	if p.BackoffAfter > 0 && st.Failures >= p.BackoffAfter && p.BackoffInterval > wait {
		wait = p.BackoffInterval
	}
	return now.Sub(st.LastAttemptAt) >= wait
}

// budget is the wall-clock deadline of one orchestrator invocation.
type budget struct {
	deadline time.Time
	reserve  time.Duration
	now      func() time.Time
}

// exhausted reports whether less than the reserve remains.
func (b budget) exhausted() bool {
	if b.deadline.IsZero() {
		return false
	}
	return !b.now().Add(b.reserve).Before(b.deadline)
}

func (b budget) remaining() time.Duration {
	if b.deadline.IsZero() {
		return 0
	}
	return b.deadline.Sub(b.now())
}
