package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/github"
	"github.com/ganot/forge-registry/internal/registry"
)

const (
	sourceGitHub      = "github"
	sourcePullRequest = "pull-request"
)

// contributors adds repository contributors of due repositories.
func (o *Orchestrator) contributors(ctx context.Context, r *run) (taskResult, error) {
	reg, state, err := o.loadWithState(ctx)
	if err != nil {
		return taskResult{}, err
	}

	now := o.now()
	found := map[string][]github.Contributor{}
	results, partial := o.perRepo(r, reposOf(reg.Projects, ""), state, registry.ScanContributors, o.cfg.Contributors, now,
		func(rp repoProject) error {
			list, err := o.repos.Contributors(ctx, rp.ref.Owner, rp.ref.Name)
			if err != nil {
				return err
			}
			found[rp.key] = list
			return nil
		})
	if len(results) == 0 {
		return taskResult{partial: partial}, nil
	}

	var events []*activity.Event
	save := registry.SaveResult{Outcome: registry.OutcomeNoChange}
	if len(found) > 0 {
		_, save = o.registry.Update(ctx, TaskContributors, reg, func(reg *project.Registry) bool {
			events = nil
			for _, p := range reg.Projects {
				rp, ok := repoOf(p)
				if !ok || p.Archived {
					continue
				}
				for _, c := range found[rp.key] {
					if p.AddContributor(githubAccount(c.Login), sourceGitHub, now) {
						events = append(events, newEvent(activity.TypeContributorAdded, p, now, map[string]any{
							"login":  c.Login,
							"source": sourceGitHub,
						}))
					}
				}
			}
			return len(events) > 0
		})
	}
	o.recordState(ctx, TaskContributors, state, results, save)
	if save.Outcome == registry.OutcomeFailed {
		return taskResult{save: save.Outcome, partial: partial}, fmt.Errorf("saving registry: %w", save.Err)
	}
	o.emit(ctx, save, events)
	return taskResult{changes: len(events), save: save.Outcome, partial: partial}, nil
}

// events turns merged pull requests of tracked repositories into
// deliverables, deduplicated by URL.
func (o *Orchestrator) events(ctx context.Context, r *run) (taskResult, error) {
	reg, state, err := o.loadWithState(ctx)
	if err != nil {
		return taskResult{}, err
	}

	now := o.now()
	merged := map[string][]github.PullRequest{}
	results, partial := o.perRepo(r, reposOf(reg.Projects, project.KindRepo), state, registry.ScanEvents, o.cfg.Events, now,
		func(rp repoProject) error {
			prs, err := o.repos.ClosedPullRequests(ctx, rp.ref.Owner, rp.ref.Name)
			if err != nil {
				return err
			}
			for _, pr := range prs {
				if pr.MergedAt != nil && pr.URL != "" {
					merged[rp.key] = append(merged[rp.key], pr)
				}
			}
			return nil
		})
	if len(results) == 0 {
		return taskResult{partial: partial}, nil
	}

	var events []*activity.Event
	save := registry.SaveResult{Outcome: registry.OutcomeNoChange}
	if len(merged) > 0 {
		_, save = o.registry.Update(ctx, TaskEvents, reg, func(reg *project.Registry) bool {
			events = nil
			for _, p := range reg.Projects {
				rp, ok := repoOf(p)
				if !ok || p.Archived || rp.ref.Kind != project.KindRepo {
					continue
				}
				for _, pr := range merged[rp.key] {
					if p.HasDeliverable(pr.URL) {
						continue
					}
					author := githubAccount(pr.Author)
					p.Deliverables = append(p.Deliverables, project.Deliverable{
						URL:     pr.URL,
						Title:   truncate(pr.Title, project.MaxTitleLength),
						AddedBy: author,
						AddedAt: *pr.MergedAt,
					})
					if pr.Author != "" {
						p.AddContributor(author, sourcePullRequest, now)
					}
					p.UpdatedAt = now
					events = append(events, newEvent(activity.TypeDeliverableAdded, p, now, map[string]any{
						"url":       pr.URL,
						"title":     pr.Title,
						"pr_number": pr.Number,
						"author":    pr.Author,
						"source":    sourcePullRequest,
					}))
				}
			}
			return len(events) > 0
		})
	}
	o.recordState(ctx, TaskEvents, state, results, save)
	if save.Outcome == registry.OutcomeFailed {
		return taskResult{save: save.Outcome, partial: partial}, fmt.Errorf("saving registry: %w", save.Err)
	}
	o.emit(ctx, save, events)
	return taskResult{changes: len(events), save: save.Outcome, partial: partial}, nil
}

func (o *Orchestrator) loadWithState(ctx context.Context) (*project.Registry, *registry.ScanState, error) {
	reg, err := o.registry.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading registry: %w", err)
	}
	state, err := o.state.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading scan state: %w", err)
	}
	return reg, state, nil
}

// perRepo calls fetch for every repository whose cooldown has elapsed,
// stopping when the budget runs out. It returns one result per attempt and
// whether it stopped early.
func (o *Orchestrator) perRepo(
	r *run,
	repos []repoProject,
	state *registry.ScanState,
	kind registry.ScanKind,
	policy Policy,
	now time.Time,
	fetch func(repoProject) error,
) ([]registry.SourceResult, bool) {
	var results []registry.SourceResult
	for _, rp := range repos {
		if !policy.Due(state.Source(rp.key, kind), now) {
			continue
		}
		if r.budget.exhausted() {
			return results, true
		}
		err := fetch(rp)
		if err != nil {
			o.logger.Warn("repository scan failed", "kind", kind, "repo", rp.key, "error", err)
		}
		results = append(results, registry.SourceResult{Key: rp.key, Kind: kind, At: now, Success: err == nil})
	}
	return results, false
}
