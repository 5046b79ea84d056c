package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/github"
	"github.com/ganot/forge-registry/internal/matcher"
	"github.com/ganot/forge-registry/internal/registry"
	"github.com/ganot/forge-registry/internal/website"
)

// websites re-validates existing claims and discovers a website for due
// projects without one.
func (o *Orchestrator) websites(ctx context.Context, r *run) (taskResult, error) {
	reg, state, err := o.loadWithState(ctx)
	if err != nil {
		return taskResult{}, err
	}
	now := o.now()

	// Plan against shallow copies so the loaded registry stays untouched
	// until the delta runs.
	preview := make([]*project.Project, len(reg.Projects))
	for i, p := range reg.Projects {
		cp := *p
		preview[i] = &cp
	}
	arb := website.NewArbiter(preview)
	cleared := map[string]bool{}
	for _, c := range arb.Revalidate() {
		cleared[c.ProjectID] = true
	}

	mentions := o.mentionTexts(ctx, preview)
	plan := map[string][]website.Candidate{}
	var order []string
	var results []registry.SourceResult
	partial := false
	for _, p := range preview {
		if p.Archived || p.Website != nil {
			continue
		}
		key := websiteKey(p)
		if !cleared[p.ID] && !o.cfg.Website.Due(state.Source(key, registry.ScanWebsite), now) {
			continue
		}
		if r.budget.exhausted() {
			partial = true
			break
		}
		cands, ok := o.discover(ctx, arb, p, mentions, now)
		results = append(results, registry.SourceResult{Key: key, Kind: registry.ScanWebsite, At: now, Success: ok})
		if len(cands) > 0 {
			plan[p.ID] = cands
			order = append(order, p.ID)
		}
	}
	if len(plan) == 0 && len(cleared) == 0 {
		o.recordState(ctx, TaskWebsite, state, results, registry.SaveResult{Outcome: registry.OutcomeNoChange})
		return taskResult{partial: partial}, nil
	}

	var changes []website.Change
	var events []*activity.Event
	_, save := o.registry.Update(ctx, TaskWebsite, reg, func(reg *project.Registry) bool {
		a := website.NewArbiter(reg.Projects)
		changes = a.Revalidate()
		for _, id := range order {
			p := reg.Find(id)
			if p == nil || p.Archived || p.Website != nil {
				continue
			}
			changes = append(changes, a.Claim(p, plan[id], now)...)
		}
		events = nil
		for _, c := range changes {
			p := reg.Find(c.ProjectID)
			p.UpdatedAt = now
			data := map[string]any{"url": c.URL, "source": string(c.Source)}
			if c.Cleared {
				data["reason"] = c.Reason
				events = append(events, newEvent(activity.TypeWebsiteCleared, p, now, data))
			} else {
				events = append(events, newEvent(activity.TypeWebsiteClaimed, p, now, data))
			}
		}
		return len(changes) > 0
	})

	if save.Committed() {
		for _, c := range changes {
			if !c.Cleared {
				o.metrics.websites.WithLabelValues("claimed").Inc()
				continue
			}
			o.metrics.websites.WithLabelValues("cleared").Inc()
			if p := findProject(preview, c.ProjectID); p != nil {
				results = append(results, registry.SourceResult{Key: websiteKey(p), Kind: registry.ScanWebsite, At: now, Reset: true})
			}
		}
	}
	o.recordState(ctx, TaskWebsite, state, results, save)
	if save.Outcome == registry.OutcomeFailed {
		return taskResult{save: save.Outcome, partial: partial}, fmt.Errorf("saving registry: %w", save.Err)
	}
	o.emit(ctx, save, events)
	return taskResult{changes: len(changes), save: save.Outcome, partial: partial}, nil
}

// discover gathers candidates source by source until one can be claimed on
// the preview arbiter. The README is only fetched when the homepage and
// description yield nothing claimable. ok is false when a source failed.
func (o *Orchestrator) discover(ctx context.Context, arb *website.Arbiter, p *project.Project, mentions func(string) []string, now time.Time) ([]website.Candidate, bool) {
	var cands []website.Candidate
	try := func(next []website.Candidate) bool {
		cands = append(cands, next...)
		return len(next) > 0 && arb.Claim(p, next, now) != nil
	}

	if p.Snapshot != nil {
		if try(website.FromHomepage(p.Snapshot.Homepage)) || try(website.FromDescription(p.Snapshot.Description)) {
			return cands, true
		}
	}

	ok := true
	if rp, has := repoOf(p); has {
		readme, err := o.repos.Readme(ctx, rp.ref.Owner, rp.ref.Name)
		switch {
		case errors.Is(err, github.ErrNotFound):
		case err != nil:
			ok = false
			o.logger.Warn("readme fetch failed", "project_id", p.ID, "repo", rp.key, "error", err)
		default:
			if try(website.FromReadme(readme)) {
				return cands, ok
			}
		}
	}

	if try(website.FromDeliverables(p.Deliverables, o.cfg.SelfDomain)) {
		return cands, ok
	}
	try(website.FromMentions(mentions(p.ID), o.cfg.SelfDomain))
	return cands, ok
}

// mentionTexts returns a lookup of archived message texts matching each
// project. The archive is loaded on first use.
func (o *Orchestrator) mentionTexts(ctx context.Context, projects []*project.Project) func(string) []string {
	var byProject map[string][]string
	return func(id string) []string {
		if byProject == nil {
			byProject = map[string][]string{}
			arch, err := o.archive.Load(ctx)
			if err != nil {
				o.logger.Warn("loading archive for website discovery", "error", err)
				return nil
			}
			idx := matcher.NewIndex(projects)
			for _, m := range arch.Messages {
				for _, hit := range idx.Find(m.Text) {
					byProject[hit.ProjectID] = append(byProject[hit.ProjectID], m.Text)
				}
			}
		}
		return byProject[id]
	}
}

func websiteKey(p *project.Project) string {
	if rp, ok := repoOf(p); ok {
		return rp.key
	}
	return "project:" + p.ID
}

func findProject(projects []*project.Project, id string) *project.Project {
	for _, p := range projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}
