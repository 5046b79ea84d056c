package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service handles audit stream operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// LogEvent appends an event to the audit stream, stamping it if needed.
func (s *Service) LogEvent(ctx context.Context, event *Event) error {
	if event == nil || event.Type == "" || strings.TrimSpace(event.ProjectID) == "" {
		return ErrInvalidInput
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if err := s.repo.Log(ctx, event); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	s.logger.Debug("audit event", "type", event.Type, "project_id", event.ProjectID)
	return nil
}

// LogEvents appends events in order. A failing event is logged and skipped
// so one bad write never hides the rest.
func (s *Service) LogEvents(ctx context.Context, events []*Event) int {
	written := 0
	for _, event := range events {
		if err := s.LogEvent(ctx, event); err != nil {
			s.logger.Warn("failed to log audit event", "type", event.Type, "project_id", event.ProjectID, "error", err)
			continue
		}
		written++
	}
	return written
}

// GetRecentActivity lists events newest first.
func (s *Service) GetRecentActivity(ctx context.Context, opts ListOptions) ([]Event, error) {
	return s.repo.List(ctx, opts)
}

// BackfillTitles fills in missing project titles on recorded events using
// the lookup. It returns the number of events updated.
func (s *Service) BackfillTitles(ctx context.Context, limit int, lookup func(projectID string) (string, bool)) (int, error) {
	events, err := s.repo.ListUntitled(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing untitled events: %w", err)
	}
	updated := 0
	for _, event := range events {
		title, ok := lookup(event.ProjectID)
		if !ok || title == "" {
			continue
		}
		if err := s.repo.SetTitle(ctx, event.ID, title); err != nil {
			return updated, fmt.Errorf("setting title on event %d: %w", event.ID, err)
		}
		updated++
	}
	return updated, nil
}
