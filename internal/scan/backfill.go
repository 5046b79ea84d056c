package scan

import (
	"context"
	"fmt"
)

// backfill fills missing project titles on historical audit events. It
// only reads the registry.
func (o *Orchestrator) backfill(ctx context.Context, _ *run) (taskResult, error) {
	if o.audit == nil {
		return taskResult{}, nil
	}
	reg, err := o.registry.Load(ctx)
	if err != nil {
		return taskResult{}, fmt.Errorf("loading registry: %w", err)
	}
	titles := make(map[string]string, len(reg.Projects))
	for _, p := range reg.Projects {
		titles[p.ID] = p.Title
	}
	n, err := o.audit.BackfillTitles(ctx, o.cfg.BackfillLimit, func(id string) (string, bool) {
		t, ok := titles[id]
		return t, ok
	})
	if err != nil {
		return taskResult{changes: n}, fmt.Errorf("backfilling titles: %w", err)
	}
	return taskResult{changes: n}, nil
}
