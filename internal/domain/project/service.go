package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/repository"
	"github.com/google/uuid"
)

// LeadershipTakeoverDays is how long a leader must be inactive before
// another account may claim leadership.
const LeadershipTakeoverDays = 30

// Service handles interactive project operations. Every write is a single
// load, mutate, conditional save cycle; losing the race surfaces ErrConflict.
type Service struct {
	store  Store
	events EventLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new project service.
func NewService(store Store, events EventLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, events: events, logger: logger, now: time.Now}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Title         string
	Description   string
	RepositoryURL string
	SearchTerms   []string
}

// Create adds a new project founded and led by the actor.
func (s *Service) Create(ctx context.Context, actor Account, req CreateRequest) (*Project, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}
	if req.RepositoryURL != "" {
		if _, err := ParseRepositoryURL(req.RepositoryURL); err != nil {
			return nil, err
		}
	}
	terms, err := normalizeSearchTerms(req.SearchTerms)
	if err != nil {
		return nil, err
	}

	reg, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	now := s.now()
	proj := &Project{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		RepositoryURL: strings.TrimSpace(req.RepositoryURL),
		Status:        StatusTodo,
		Founder:       actor,
		Leader:        &Leader{Account: actor, AssignedAt: now, LastActiveAt: now},
		Contributors:  map[string]Contributor{},
		SearchTerms:   terms,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	proj.AddContributor(actor, "founder", now)
	reg.Projects = append(reg.Projects, proj)

	if err := s.save(ctx, reg); err != nil {
		return nil, err
	}
	s.emit(ctx, actor, proj, activity.TypeProjectCreated, map[string]any{
		"repository_url": proj.RepositoryURL,
	})
	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	reg, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	proj := reg.Find(id)
	if proj == nil {
		return nil, ErrProjectNotFound
	}
	return proj, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status          Status
	IncludeArchived bool
}

// List returns projects ordered by creation time.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Project, error) {
	reg, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	out := make([]*Project, 0, len(reg.Projects))
	for _, p := range reg.Projects {
		if p.Archived && !filter.IncludeArchived {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateRequest holds optional field changes. Nil fields are left alone.
type UpdateRequest struct {
	Title         *string
	Description   *string
	RepositoryURL *string
	SearchTerms   []string
}

// Update edits descriptive fields of a project.
func (s *Service) Update(ctx context.Context, actor Account, id string, req UpdateRequest) (*Project, error) {
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	var terms []string
	if req.SearchTerms != nil {
		var err error
		if terms, err = normalizeSearchTerms(req.SearchTerms); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		changed := []string{}
		if req.RepositoryURL != nil && strings.TrimSpace(*req.RepositoryURL) != p.RepositoryURL {
			next := strings.TrimSpace(*req.RepositoryURL)
			if err := checkRepositoryChange(p.RepositoryURL, next); err != nil {
				return "", nil, err
			}
			p.RepositoryURL = next
			p.Snapshot = nil
			changed = append(changed, "repository_url")
		}
		if req.Title != nil {
			p.Title = strings.TrimSpace(*req.Title)
			changed = append(changed, "title")
		}
		if req.Description != nil {
			p.Description = *req.Description
			changed = append(changed, "description")
		}
		if req.SearchTerms != nil {
			p.SearchTerms = terms
			changed = append(changed, "search_terms")
		}
		return activity.TypeProjectUpdated, map[string]any{"fields": changed}, nil
	})
}

func checkRepositoryChange(current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: repository url cannot be removed", ErrInvalidInput)
	}
	nextRef, err := ParseRepositoryURL(next)
	if err != nil {
		return err
	}
	if current == "" {
		return nil
	}
	curRef, err := ParseRepositoryURL(current)
	if err == nil && curRef.Kind != nextRef.Kind {
		return fmt.Errorf("%w: repository url must stay a %s", ErrInvalidInput, curRef.Kind)
	}
	return nil
}

// SetStatus sets one of the manually settable statuses.
func (s *Service) SetStatus(ctx context.Context, actor Account, id string, status Status) (*Project, error) {
	if !ManuallySettable(status) {
		return nil, fmt.Errorf("%w: status %q cannot be set directly", ErrInvalidInput, status)
	}
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		old := p.Status
		p.Status = status
		p.StatusManual = true
		return activity.TypeStatusSet, map[string]any{"old_status": string(old), "new_status": string(status)}, nil
	})
}

// Rate records the actor's score, replacing any earlier rating by them.
func (s *Service) Rate(ctx context.Context, actor Account, id string, score int, review string) (*Project, error) {
	if err := validateScore(score, review); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		rating := Rating{Account: actor, Score: score, Review: review, RatedAt: now}
		replaced := false
		for i := range p.Ratings {
			if p.Ratings[i].Account.ID == actor.ID {
				p.Ratings[i] = rating
				replaced = true
				break
			}
		}
		if !replaced {
			p.Ratings = append(p.Ratings, rating)
		}
		p.RecomputeReputation()
		return activity.TypeRated, map[string]any{"score": score, "replaced": replaced, "average": p.Reputation.Average}, nil
	})
}

// ClaimWork marks the actor as actively working on the project.
func (s *Service) ClaimWork(ctx context.Context, actor Account, id string) (*Project, error) {
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		if p.ClaimedBy != nil {
			if p.ClaimedBy.Account.ID == actor.ID {
				return "", nil, nil
			}
			return "", nil, ErrAlreadyClaimed
		}
		p.ClaimedBy = &Claim{Account: actor, ClaimedAt: now}
		return activity.TypeWorkClaimed, nil, nil
	})
}

// ReleaseWork clears the actor's work claim.
func (s *Service) ReleaseWork(ctx context.Context, actor Account, id string) (*Project, error) {
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		if p.ClaimedBy == nil || p.ClaimedBy.Account.ID != actor.ID {
			return "", nil, ErrNotClaimHolder
		}
		p.ClaimedBy = nil
		return activity.TypeWorkReleased, nil, nil
	})
}

// ClaimLeadership assigns the actor as leader when the project has none or
// the current leader has been inactive for LeadershipTakeoverDays.
func (s *Service) ClaimLeadership(ctx context.Context, actor Account, id string) (*Project, error) {
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		data := map[string]any{}
		if p.Leader != nil {
			if p.Leader.Account.ID == actor.ID {
				return "", nil, nil
			}
			days := int(now.Sub(p.Leader.LastActiveAt).Hours() / 24)
			if days < LeadershipTakeoverDays {
				return "", nil, &LeaderActiveError{
					DaysInactive:  days,
					RequiredDays:  LeadershipTakeoverDays,
					CurrentLeader: p.Leader.Account.ID,
				}
			}
			data["previous_leader"] = p.Leader.Account.ID
			data["days_inactive"] = days
		}
		p.Leader = &Leader{Account: actor, AssignedAt: now, LastActiveAt: now}
		return activity.TypeLeadershipClaimed, data, nil
	})
}

// TransferLeadership hands leadership from the actor to another account.
func (s *Service) TransferLeadership(ctx context.Context, actor Account, id string, to Account) (*Project, error) {
	if err := validateActor(to); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		if p.Leader == nil || p.Leader.Account.ID != actor.ID {
			return "", nil, ErrNotLeader
		}
		p.Leader = &Leader{Account: to, AssignedAt: now, LastActiveAt: now}
		p.AddContributor(to, "leader", now)
		return activity.TypeLeadershipTransferred, map[string]any{"from": actor.ID, "to": to.ID}, nil
	})
}

// SetGoal replaces the active goal, archiving earlier ones.
func (s *Service) SetGoal(ctx context.Context, actor Account, id, title string) (*Project, error) {
	if err := validateGoal(title); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		p.GoalHistory = append(p.GoalHistory, p.Goals...)
		p.Goals = []Goal{{Title: strings.TrimSpace(title), CreatedAt: now}}
		return activity.TypeGoalSet, map[string]any{"title": strings.TrimSpace(title)}, nil
	})
}

// CompleteGoal marks the active goal complete.
func (s *Service) CompleteGoal(ctx context.Context, actor Account, id string) (*Project, error) {
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		goal := p.ActiveGoal()
		if goal == nil || goal.Completed {
			return "", nil, fmt.Errorf("%w: no active goal", ErrInvalidInput)
		}
		goal.Completed = true
		at := now
		goal.CompletedAt = &at
		return activity.TypeGoalCompleted, map[string]any{"title": goal.Title}, nil
	})
}

// AddDeliverable attaches a shipped artifact URL.
func (s *Service) AddDeliverable(ctx context.Context, actor Account, id, url, title string) (*Project, error) {
	if err := validateWebURL(url); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, fmt.Errorf("%w: deliverable title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	return s.mutate(ctx, actor, id, func(p *Project, now time.Time) (activity.EventType, map[string]any, error) {
		p.Deliverables = append(p.Deliverables, Deliverable{
			URL:     strings.TrimSpace(url),
			Title:   strings.TrimSpace(title),
			AddedBy: actor,
			AddedAt: now,
		})
		return activity.TypeDeliverableAdded, map[string]any{"url": strings.TrimSpace(url), "source": "manual"}, nil
	})
}

// mutation applies a change to p. An empty event type means nothing changed.
type mutation func(p *Project, now time.Time) (activity.EventType, map[string]any, error)

func (s *Service) mutate(ctx context.Context, actor Account, id string, fn mutation) (*Project, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	reg, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	proj := reg.Find(id)
	if proj == nil {
		return nil, ErrProjectNotFound
	}

	now := s.now()
	eventType, data, err := fn(proj, now)
	if err != nil {
		return nil, err
	}
	if eventType == "" {
		return proj, nil
	}
	touch(proj, actor, now)

	if err := s.save(ctx, reg); err != nil {
		return nil, err
	}
	s.emit(ctx, actor, proj, eventType, data)
	return proj, nil
}

// touch records a mutating action by actor.
func touch(p *Project, actor Account, now time.Time) {
	p.UpdatedAt = now
	p.AddContributor(actor, "activity", now)
	if p.Leader != nil && p.Leader.Account.ID == actor.ID {
		p.Leader.LastActiveAt = now
	}
}

func (s *Service) save(ctx context.Context, reg *Registry) error {
	if err := s.store.Save(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, actor Account, p *Project, eventType activity.EventType, data map[string]any) {
	if s.events == nil {
		return
	}
	event := &activity.Event{
		Type:         eventType,
		Actor:        &activity.Actor{AccountID: actor.ID, DisplayName: actor.DisplayName},
		ProjectID:    p.ID,
		ProjectTitle: p.Title,
		Data:         data,
		CreatedAt:    s.now(),
	}
	if err := s.events.LogEvent(ctx, event); err != nil {
		s.logger.Warn("failed to log audit event", "type", eventType, "project_id", p.ID, "error", err)
	}
}

func validateActor(actor Account) error {
	if strings.TrimSpace(actor.ID) == "" {
		return fmt.Errorf("%w: actor account is required", ErrInvalidInput)
	}
	return nil
}
