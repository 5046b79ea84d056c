package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/github"
	"github.com/ganot/forge-registry/internal/registry"
)

type fetched struct {
	snap     *project.Snapshot
	notFound bool
}

// refresh re-reads every project's repository, issue or pull request and
// reconciles its status.
func (o *Orchestrator) refresh(ctx context.Context, r *run) (taskResult, error) {
	reg, err := o.registry.Load(ctx)
	if err != nil {
		return taskResult{}, fmt.Errorf("loading registry: %w", err)
	}

	results := map[string]fetched{}
	partial := false
	for _, p := range reg.Projects {
		rp, ok := repoOf(p)
		if !ok {
			continue
		}
		if r.budget.exhausted() {
			partial = true
			break
		}
		snap, err := o.repos.Snapshot(ctx, rp.ref)
		switch {
		case errors.Is(err, github.ErrNotFound):
			results[p.ID] = fetched{notFound: true}
		case err != nil:
			o.logger.Warn("repository refresh failed", "project_id", p.ID, "repo", rp.key, "error", err)
		default:
			results[p.ID] = fetched{snap: snap}
		}
	}
	if len(results) == 0 {
		return taskResult{partial: partial}, nil
	}

	now := o.now()
	var events []*activity.Event
	_, save := o.registry.Update(ctx, TaskRefresh, reg, func(reg *project.Registry) bool {
		events = nil
		changed := false
		for _, p := range reg.Projects {
			f, ok := results[p.ID]
			if !ok {
				continue
			}
			if f.notFound {
				events = o.applyNotFound(p, now, events)
			} else {
				events = applySnapshot(p, f.snap, now, events)
			}
			changed = true
		}
		return changed
	})
	if save.Outcome == registry.OutcomeFailed {
		return taskResult{save: save.Outcome, partial: partial}, fmt.Errorf("saving registry: %w", save.Err)
	}
	o.emit(ctx, save, events)
	return taskResult{changes: len(events), save: save.Outcome, partial: partial}, nil
}

func applySnapshot(p *project.Project, fresh *project.Snapshot, now time.Time, events []*activity.Event) []*activity.Event {
	snap := *fresh
	snap.FetchedAt = now
	snap.NotFoundCount = 0
	p.Snapshot = &snap

	if p.Archived {
		p.Archived = false
		p.ArchivedAt = nil
		p.UpdatedAt = now
		events = append(events, newEvent(activity.TypeUnarchived, p, now, nil))
	}

	next := project.Reconcile(p.Status, p.StatusManual, &snap)
	if next != p.Status {
		events = append(events, newEvent(activity.TypeStatusSynced, p, now, map[string]any{
			"old_status": string(p.Status),
			"new_status": string(next),
			"kind":       string(snap.Kind),
			"closed":     snap.Closed,
			"merged":     snap.Merged,
			"archived":   snap.Archived,
		}))
		p.Status = next
		p.UpdatedAt = now
	}
	return events
}

func (o *Orchestrator) applyNotFound(p *project.Project, now time.Time, events []*activity.Event) []*activity.Event {
	if p.Snapshot == nil {
		p.Snapshot = &project.Snapshot{}
	}
	p.Snapshot.NotFoundCount++
	threshold := o.cfg.NotFoundThreshold
	if threshold > 0 && p.Snapshot.NotFoundCount >= threshold && !p.Archived {
		p.Archived = true
		p.ArchivedAt = &now
		p.UpdatedAt = now
		events = append(events, newEvent(activity.TypeAutoArchived, p, now, map[string]any{
			"not_found_count": p.Snapshot.NotFoundCount,
		}))
	}
	return events
}
