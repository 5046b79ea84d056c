package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryPolicy bounds the retrying save used by background scans.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// delay returns the wait before retry n (1-based), doubling from BaseDelay.
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// SaveOutcome classifies the result of a retrying save.
type SaveOutcome string

const (
	OutcomeNoChange       SaveOutcome = "no_change"
	OutcomeApplied        SaveOutcome = "applied"
	OutcomeRetriedApplied SaveOutcome = "retried_applied"
	OutcomeDropped        SaveOutcome = "dropped"
	OutcomeFailed         SaveOutcome = "failed"
)

// SaveResult reports how a retrying save ended.
type SaveResult struct {
	Outcome  SaveOutcome
	Attempts int
	Err      error
}

// Committed reports whether the delta reached storage.
func (r SaveResult) Committed() bool {
	return r.Outcome == OutcomeApplied || r.Outcome == OutcomeRetriedApplied
}

// retrySave applies delta to base and saves it. On a version conflict it
// reloads, re-applies delta to the fresh value and tries again until the
// policy is exhausted, at which point the change is dropped. delta must be
// safe to apply to any version of the document and returns false when it
// leaves the document unchanged.
func retrySave[D comparable](
	ctx context.Context,
	logger *slog.Logger,
	policy RetryPolicy,
	task string,
	base D,
	load func(context.Context) (D, error),
	save func(context.Context, D) error,
	delta func(D) bool,
) (D, SaveResult) {
	var zero D
	doc := base
	if doc == zero {
		var err error
		if doc, err = load(ctx); err != nil {
			return zero, SaveResult{Outcome: OutcomeFailed, Err: err}
		}
	}
	attempts := max(policy.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		if !delta(doc) {
			return doc, SaveResult{Outcome: OutcomeNoChange, Attempts: attempt}
		}
		err := save(ctx, doc)
		if err == nil {
			outcome := OutcomeApplied
			if attempt > 1 {
				outcome = OutcomeRetriedApplied
			}
			return doc, SaveResult{Outcome: outcome, Attempts: attempt}
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return doc, SaveResult{Outcome: OutcomeFailed, Attempts: attempt, Err: err}
		}
		if attempt >= attempts {
			logger.Warn("dropping changes after repeated conflicts", "task", task, "attempts", attempt)
			return doc, SaveResult{Outcome: OutcomeDropped, Attempts: attempt, Err: err}
		}

		wait := policy.delay(attempt)
		logger.Debug("save conflict, retrying", "task", task, "attempt", attempt, "wait", wait)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Warn("dropping changes, context done during retry", "task", task, "attempts", attempt)
				return doc, SaveResult{Outcome: OutcomeDropped, Attempts: attempt, Err: ctx.Err()}
			case <-timer.C:
			}
		}

		fresh, err := load(ctx)
		if err != nil {
			return doc, SaveResult{Outcome: OutcomeFailed, Attempts: attempt, Err: err}
		}
		doc = fresh
	}
}
