// Package scan reconciles the registry against external sources under a
// per-invocation time budget.
package scan

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/registry"
)

// Task names, in run order.
const (
	TaskRefresh      = "refresh"
	TaskMentions     = "mentions"
	TaskContributors = "contributors"
	TaskEvents       = "events"
	TaskWebsite      = "website"
	TaskBackfill     = "backfill"
)

// Outcome is how a task ended.
type Outcome string

const (
	OutcomeRan     Outcome = "ran"
	OutcomeNoop    Outcome = "noop"
	OutcomeSkipped Outcome = "skipped_time_budget"
	OutcomeFailed  Outcome = "failed"
)

// TaskReport describes one task of a run.
type TaskReport struct {
	Task     string
	Outcome  Outcome
	Changes  int
	Save     registry.SaveOutcome
	Partial  bool
	Duration time.Duration
	Err      error
}

// Report describes one orchestrator run.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	FullReset bool
	Tasks     []TaskReport
}

// Task returns the report for the named task.
func (r Report) Task(name string) (TaskReport, bool) {
	for _, t := range r.Tasks {
		if t.Task == name {
			return t, true
		}
	}
	return TaskReport{}, false
}

// Failed reports whether any task failed.
func (r Report) Failed() bool {
	for _, t := range r.Tasks {
		if t.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// RunOptions control a single run.
type RunOptions struct {
	// FullReset replays the message archive instead of the live feed.
	FullReset bool
	// Budget bounds the run. Zero means no limit beyond ctx.
	Budget time.Duration
}

// Config tunes the scans.
type Config struct {
	Contributors      Policy
	Events            Policy
	Website           Policy
	NotFoundThreshold int
	ProcessedLimit    int
	BackfillLimit     int
	SelfDomain        string
	// Reserve is the minimum time left for a task or unit of work to start.
	Reserve time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Contributors:      Policy{Interval: 6 * time.Hour, BackoffAfter: 3, BackoffInterval: 24 * time.Hour},
		Events:            Policy{Interval: time.Hour, BackoffAfter: 3, BackoffInterval: 12 * time.Hour},
		Website:           Policy{Interval: 12 * time.Hour, BackoffAfter: 3, BackoffInterval: 72 * time.Hour},
		NotFoundThreshold: 3,
		ProcessedLimit:    2000,
		BackfillLimit:     200,
		Reserve:           2 * time.Second,
	}
}

// Deps are the collaborators of the orchestrator. Feed may be nil.
type Deps struct {
	Registry RegistryStore
	State    StateStore
	Archive  ArchiveStore
	Repos    RepoSource
	Feed     FeedSource
	Audit    Audit
	Metrics  *Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// Orchestrator runs the background scans.
type Orchestrator struct {
	cfg      Config
	registry RegistryStore
	state    StateStore
	archive  ArchiveStore
	repos    RepoSource
	feed     FeedSource
	audit    Audit
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates an orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: deps.Registry,
		state:    deps.State,
		archive:  deps.Archive,
		repos:    deps.Repos,
		feed:     deps.Feed,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tracer:   otel.Tracer("github.com/ganot/forge-registry/internal/scan"),
		now:      deps.Now,
	}
}

type run struct {
	opts   RunOptions
	budget budget
}

type taskResult struct {
	changes int
	save    registry.SaveOutcome
	partial bool
}

type taskFunc func(ctx context.Context, r *run) (taskResult, error)

// Run executes every task in order, skipping those that would start after
// the deadline.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) Report {
	start := o.now()
	b := budget{reserve: o.cfg.Reserve, now: o.now}
	if opts.Budget > 0 {
		b.deadline = start.Add(opts.Budget)
	}
	if dl, ok := ctx.Deadline(); ok && (b.deadline.IsZero() || dl.Before(b.deadline)) {
		b.deadline = dl
	}
	r := &run{opts: opts, budget: b}

	tasks := []struct {
		name string
		fn   taskFunc
	}{
		{TaskRefresh, o.refresh},
		{TaskMentions, o.mentions},
		{TaskContributors, o.contributors},
		{TaskEvents, o.events},
		{TaskWebsite, o.websites},
		{TaskBackfill, o.backfill},
	}

	report := Report{StartedAt: start, FullReset: opts.FullReset}
	for _, t := range tasks {
		report.Tasks = append(report.Tasks, o.runTask(ctx, r, t.name, t.fn))
	}
	report.Duration = o.now().Sub(start)
	o.logger.Info("scan finished", "duration", report.Duration, "full_reset", opts.FullReset, "failed", report.Failed())
	return report
}

func (o *Orchestrator) runTask(ctx context.Context, r *run, name string, fn taskFunc) TaskReport {
	if ctx.Err() != nil || r.budget.exhausted() {
		o.logger.Info("skipping scan task, time budget exhausted", "task", name)
		o.metrics.taskOutcomes.WithLabelValues(name, string(OutcomeSkipped)).Inc()
		return TaskReport{Task: name, Outcome: OutcomeSkipped}
	}

	ctx, span := o.tracer.Start(ctx, "scan."+name, trace.WithAttributes(attribute.Bool("scan.full_reset", r.opts.FullReset)))
	defer span.End()

	begin := o.now()
	res, err := fn(ctx, r)
	rep := TaskReport{
		Task:     name,
		Changes:  res.changes,
		Save:     res.save,
		Partial:  res.partial,
		Duration: o.now().Sub(begin),
		Err:      err,
	}
	switch {
	case err != nil:
		rep.Outcome = OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "task failed")
		o.logger.Warn("scan task failed", "task", name, "error", err)
	case res.changes > 0 || committedOrDropped(res.save):
		rep.Outcome = OutcomeRan
	default:
		rep.Outcome = OutcomeNoop
	}
	if res.save != "" {
		o.metrics.saveOutcomes.WithLabelValues(name, string(res.save)).Inc()
	}
	o.metrics.taskOutcomes.WithLabelValues(name, string(rep.Outcome)).Inc()
	o.metrics.taskDuration.WithLabelValues(name).Observe(rep.Duration.Seconds())
	span.SetAttributes(attribute.String("scan.outcome", string(rep.Outcome)), attribute.Int("scan.changes", rep.Changes))
	o.logger.Debug("scan task done", "task", name, "outcome", rep.Outcome, "changes", rep.Changes, "save", rep.Save, "partial", rep.Partial, "remaining", r.budget.remaining())
	return rep
}

func committedOrDropped(s registry.SaveOutcome) bool {
	return s == registry.OutcomeApplied || s == registry.OutcomeRetriedApplied || s == registry.OutcomeDropped
}

func (o *Orchestrator) emit(ctx context.Context, save registry.SaveResult, events []*activity.Event) {
	if !save.Committed() || len(events) == 0 || o.audit == nil {
		return
	}
	o.audit.LogEvents(ctx, events)
}

// recordState writes cooldown results. Successes are discarded when the
// registry write did not land so the next run redoes the work.
func (o *Orchestrator) recordState(ctx context.Context, task string, base *registry.ScanState, results []registry.SourceResult, save registry.SaveResult) {
	if save.Outcome == registry.OutcomeDropped || save.Outcome == registry.OutcomeFailed {
		kept := results[:0:0]
		for _, r := range results {
			if !r.Success {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	if _, res := o.state.Record(ctx, task, base, results); res.Err != nil {
		o.logger.Warn("failed to record scan state", "task", task, "outcome", res.Outcome, "error", res.Err)
	}
}

func newEvent(t activity.EventType, p *project.Project, now time.Time, data map[string]any) *activity.Event {
	return &activity.Event{Type: t, ProjectID: p.ID, ProjectTitle: p.Title, Data: data, CreatedAt: now}
}

type repoProject struct {
	key string
	ref project.RepoRef
}

// repoOf parses the project's repository reference and its cooldown key.
func repoOf(p *project.Project) (repoProject, bool) {
	if p.RepositoryURL == "" {
		return repoProject{}, false
	}
	ref, err := project.ParseRepositoryURL(p.RepositoryURL)
	if err != nil {
		return repoProject{}, false
	}
	return repoProject{key: strings.ToLower(ref.FullName()), ref: ref}, true
}

// reposOf returns the distinct repositories of non-archived projects in
// registry order, optionally limited to one kind.
func reposOf(projects []*project.Project, kind project.Kind) []repoProject {
	seen := map[string]struct{}{}
	var out []repoProject
	for _, p := range projects {
		if p.Archived {
			continue
		}
		rp, ok := repoOf(p)
		if !ok || (kind != "" && rp.ref.Kind != kind) {
			continue
		}
		if _, dup := seen[rp.key]; dup {
			continue
		}
		seen[rp.key] = struct{}{}
		out = append(out, rp)
	}
	return out
}

func githubAccount(login string) project.Account {
	return project.Account{ID: "github:" + strings.ToLower(login), DisplayName: login}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
