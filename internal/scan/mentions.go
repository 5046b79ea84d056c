package scan

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/feed"
	"github.com/ganot/forge-registry/internal/matcher"
	"github.com/ganot/forge-registry/internal/registry"
)

const sourceMention = "mention"

// mentions counts new feed entries that reference projects. A full reset
// recounts everything from the message archive instead.
func (o *Orchestrator) mentions(ctx context.Context, r *run) (taskResult, error) {
	if r.opts.FullReset {
		return o.rescanMentions(ctx)
	}
	if o.feed == nil {
		return taskResult{}, nil
	}
	entries, err := o.feed.Recent(ctx)
	if err != nil {
		o.logger.Warn("feed unavailable, skipping mention scan", "error", err)
		return taskResult{partial: true}, nil
	}
	o.archiveEntries(ctx, entries)

	entries = slices.Clone(entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })

	reg, err := o.registry.Load(ctx)
	if err != nil {
		return taskResult{}, fmt.Errorf("loading registry: %w", err)
	}

	now := o.now()
	var events []*activity.Event
	_, save := o.registry.Update(ctx, TaskMentions, reg, func(reg *project.Registry) bool {
		events = nil
		idx := matcher.NewIndex(reg.Projects)
		changed := false
		for _, e := range entries {
			if strings.TrimSpace(e.Text) == "" || reg.MentionProcessed(e.Timestamp) {
				continue
			}
			for _, hit := range idx.Find(e.Text) {
				p := reg.Find(hit.ProjectID)
				p.Mentions++
				data := map[string]any{
					"term":      hit.Term.Text,
					"term_type": string(hit.Term.Type),
					"ts":        e.Timestamp,
				}
				if e.From != nil {
					p.AddContributor(project.Account{ID: e.From.ID, DisplayName: e.From.Name}, sourceMention, now)
					data["sender_id"] = e.From.ID
				}
				events = append(events, newEvent(activity.TypeMentioned, p, now, data))
			}
			reg.MarkMentionProcessed(e.Timestamp, o.cfg.ProcessedLimit)
			changed = true
		}
		return changed
	})
	if save.Outcome == registry.OutcomeFailed {
		return taskResult{save: save.Outcome}, fmt.Errorf("saving registry: %w", save.Err)
	}
	if save.Committed() {
		o.metrics.mentions.Add(float64(len(events)))
	}
	o.emit(ctx, save, events)
	return taskResult{changes: len(events), save: save.Outcome}, nil
}

// rescanMentions zeroes every mention count and replays the archive. It
// emits one summary event per project whose count moved, not one per match.
func (o *Orchestrator) rescanMentions(ctx context.Context) (taskResult, error) {
	if o.feed != nil {
		if entries, err := o.feed.Recent(ctx); err != nil {
			o.logger.Warn("feed unavailable, rescanning archive only", "error", err)
		} else {
			o.archiveEntries(ctx, entries)
		}
	}
	arch, err := o.archive.Load(ctx)
	if err != nil {
		return taskResult{}, fmt.Errorf("loading archive: %w", err)
	}
	msgs := slices.Clone(arch.Messages)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })

	reg, err := o.registry.Load(ctx)
	if err != nil {
		return taskResult{}, fmt.Errorf("loading registry: %w", err)
	}

	now := o.now()
	var events []*activity.Event
	_, save := o.registry.Update(ctx, TaskMentions, reg, func(reg *project.Registry) bool {
		events = nil
		before := make(map[string]int, len(reg.Projects))
		for _, p := range reg.Projects {
			before[p.ID] = p.Mentions
			p.Mentions = 0
		}
		processed := reg.ProcessedMentions
		reg.ProcessedMentions = nil

		idx := matcher.NewIndex(reg.Projects)
		changed := false
		for _, m := range msgs {
			if strings.TrimSpace(m.Text) == "" {
				continue
			}
			for _, hit := range idx.Find(m.Text) {
				p := reg.Find(hit.ProjectID)
				p.Mentions++
				if m.SenderID != "" && p.AddContributor(project.Account{ID: m.SenderID, DisplayName: m.SenderName}, sourceMention, now) {
					changed = true
				}
			}
			reg.MarkMentionProcessed(m.Timestamp, o.cfg.ProcessedLimit)
		}

		for _, p := range reg.Projects {
			if p.Mentions == before[p.ID] {
				continue
			}
			changed = true
			events = append(events, newEvent(activity.TypeMentionsRescanned, p, now, map[string]any{
				"previous": before[p.ID],
				"mentions": p.Mentions,
			}))
		}
		return changed || !slices.Equal(processed, reg.ProcessedMentions)
	})
	if save.Outcome == registry.OutcomeFailed {
		return taskResult{save: save.Outcome}, fmt.Errorf("saving registry: %w", save.Err)
	}
	o.emit(ctx, save, events)
	return taskResult{changes: len(events), save: save.Outcome}, nil
}

// archiveEntries keeps feed entries with text for later full rescans.
func (o *Orchestrator) archiveEntries(ctx context.Context, entries []feed.Entry) {
	msgs := make([]registry.ArchivedMessage, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		m := registry.ArchivedMessage{Timestamp: e.Timestamp, Text: e.Text}
		if e.From != nil {
			m.SenderID, m.SenderName = e.From.ID, e.From.Name
		}
		if e.To != nil {
			m.ReceiverID = e.To.ID
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return
	}
	if _, res := o.archive.Append(ctx, msgs); !res.Committed() && res.Outcome != registry.OutcomeNoChange {
		o.logger.Warn("failed to archive feed entries", "outcome", res.Outcome, "error", res.Err)
	}
}
