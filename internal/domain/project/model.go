package project

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusShipped    Status = "shipped"
	StatusPaid       Status = "paid"
)

// Kind is the type of source-hosting resource a project points at.
type Kind string

const (
	KindRepo  Kind = "repo"
	KindIssue Kind = "issue"
	KindPR    Kind = "pr"
)

// Account identifies a verified user.
type Account struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Snapshot is the last-fetched external state of the project's repository,
// issue or pull request.
type Snapshot struct {
	Kind          Kind      `json:"kind,omitempty"`
	Closed        bool      `json:"closed,omitempty"`
	Archived      bool      `json:"archived,omitempty"`
	Merged        bool      `json:"merged,omitempty"`
	Labels        []string  `json:"labels,omitempty"`
	Stars         int       `json:"stars,omitempty"`
	Homepage      string    `json:"homepage,omitempty"`
	Description   string    `json:"description,omitempty"`
	Owner         string    `json:"owner,omitempty"`
	FetchedAt     time.Time `json:"fetched_at,omitempty"`
	NotFoundCount int       `json:"not_found_count,omitempty"`
}

// Leader is the current steward of a project.
type Leader struct {
	Account      Account   `json:"account"`
	AssignedAt   time.Time `json:"assigned_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Contributor is an account that has touched the project.
type Contributor struct {
	Account Account   `json:"account"`
	Source  string    `json:"source,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Claim marks an account actively working on the project.
type Claim struct {
	Account   Account   `json:"account"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Rating is one account's score for a project.
type Rating struct {
	Account Account   `json:"account"`
	Score   int       `json:"score"`
	Review  string    `json:"review,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

// Reputation aggregates ratings.
type Reputation struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Goal is a short-term objective for the project.
type Goal struct {
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Deliverable is a shipped artifact attached to the project.
type Deliverable struct {
	URL     string    `json:"url"`
	Title   string    `json:"title,omitempty"`
	AddedBy Account   `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// WebsiteSource tags where a website claim was discovered.
type WebsiteSource string

const (
	SourceHomepage    WebsiteSource = "homepage"
	SourceDescription WebsiteSource = "description"
	SourceReadme      WebsiteSource = "readme"
	SourceDeliverable WebsiteSource = "deliverable"
	SourceMentions    WebsiteSource = "mentions"
)

// WebsiteClaim is the discovered deployment URL of a project.
type WebsiteClaim struct {
	URL          string        `json:"url"`
	Source       WebsiteSource `json:"source"`
	DiscoveredAt time.Time     `json:"discovered_at"`
}

// Project is one tracked entry in the registry.
type Project struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	RepositoryURL string                 `json:"repository_url,omitempty"`
	Snapshot      *Snapshot              `json:"snapshot,omitempty"`
	Status        Status                 `json:"status"`
	StatusManual  bool                   `json:"status_manual,omitempty"`
	Founder       Account                `json:"founder"`
	Leader        *Leader                `json:"leader,omitempty"`
	Contributors  map[string]Contributor `json:"contributors"`
	ClaimedBy     *Claim                 `json:"claimed_by,omitempty"`
	Ratings       []Rating               `json:"ratings,omitempty"`
	Reputation    Reputation             `json:"reputation"`
	Goals         []Goal                 `json:"goals,omitempty"`
	GoalHistory   []Goal                 `json:"goal_history,omitempty"`
	Deliverables  []Deliverable          `json:"deliverables,omitempty"`
	Mentions      int                    `json:"mentions"`
	Website       *WebsiteClaim          `json:"website,omitempty"`
	SearchTerms   []string               `json:"search_terms,omitempty"`
	Archived      bool                   `json:"archived,omitempty"`
	ArchivedAt    *time.Time             `json:"archived_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Registry is the collection of all projects. Version is the write version
// captured at load and is not part of the stored document.
type Registry struct {
	SchemaVersion     int        `json:"schema_version"`
	Projects          []*Project `json:"projects"`
	ProcessedMentions []int64    `json:"processed_mentions,omitempty"`
	Version           int64      `json:"-"`
}

// Find returns the project with the given ID.
func (r *Registry) Find(id string) *Project {
	for _, p := range r.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// MentionProcessed reports whether a feed entry timestamp was already counted.
func (r *Registry) MentionProcessed(ts int64) bool {
	for _, seen := range r.ProcessedMentions {
		if seen == ts {
			return true
		}
	}
	return false
}

// MarkMentionProcessed records ts, keeping at most limit of the newest entries.
func (r *Registry) MarkMentionProcessed(ts int64, limit int) {
	if r.MentionProcessed(ts) {
		return
	}
	r.ProcessedMentions = append(r.ProcessedMentions, ts)
	if limit > 0 && len(r.ProcessedMentions) > limit {
		r.ProcessedMentions = r.ProcessedMentions[len(r.ProcessedMentions)-limit:]
	}
}

// AddContributor adds the account if absent and reports whether it was added.
func (p *Project) AddContributor(acct Account, source string, now time.Time) bool {
	if strings.TrimSpace(acct.ID) == "" {
		return false
	}
	if p.Contributors == nil {
		p.Contributors = make(map[string]Contributor)
	}
	if _, ok := p.Contributors[acct.ID]; ok {
		return false
	}
	p.Contributors[acct.ID] = Contributor{Account: acct, Source: source, AddedAt: now}
	return true
}

// HasDeliverable reports whether a deliverable with the URL exists.
func (p *Project) HasDeliverable(url string) bool {
	for _, d := range p.Deliverables {
		if strings.EqualFold(strings.TrimSuffix(d.URL, "/"), strings.TrimSuffix(url, "/")) {
			return true
		}
	}
	return false
}

// ActiveGoal returns the current goal, if any.
func (p *Project) ActiveGoal() *Goal {
	if len(p.Goals) == 0 {
		return nil
	}
	return &p.Goals[len(p.Goals)-1]
}

// RecomputeReputation refreshes the aggregate from Ratings.
func (p *Project) RecomputeReputation() {
	if len(p.Ratings) == 0 {
		p.Reputation = Reputation{}
		return
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Score
	}
	avg := float64(sum) / float64(len(p.Ratings))
	p.Reputation = Reputation{Average: roundTenth(avg), Count: len(p.Ratings)}
}
