package mcp

import (
	"time"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
)

type CreateProjectParams struct {
	Title         string   `json:"title" jsonschema:"project title, 1 to 140 characters"`
	Description   string   `json:"description,omitempty" jsonschema:"free text description, up to 2000 characters"`
	RepositoryURL string   `json:"repository_url,omitempty" jsonschema:"GitHub repository, issue or pull request URL"`
	SearchTerms   []string `json:"search_terms,omitempty" jsonschema:"extra terms that count as a mention of this project"`
}

type ProjectIDParams struct {
	ID string `json:"id" jsonschema:"project ID"`
}

type ListProjectsParams struct {
	Status          string `json:"status,omitempty" jsonschema:"only return projects with this status"`
	IncludeArchived bool   `json:"include_archived,omitempty" jsonschema:"include auto-archived projects"`
}

type UpdateProjectParams struct {
	ID            string   `json:"id" jsonschema:"project ID"`
	Title         *string  `json:"title,omitempty" jsonschema:"new title"`
	Description   *string  `json:"description,omitempty" jsonschema:"new description"`
	RepositoryURL *string  `json:"repository_url,omitempty" jsonschema:"new repository URL of the same kind"`
	SearchTerms   []string `json:"search_terms,omitempty" jsonschema:"replacement search terms"`
}

type SetStatusParams struct {
	ID     string `json:"id" jsonschema:"project ID"`
	Status string `json:"status" jsonschema:"one of done, shipped, paid, blocked"`
}

type RateProjectParams struct {
	ID     string `json:"id" jsonschema:"project ID"`
	Score  int    `json:"score" jsonschema:"rating from 1 to 5"`
	Review string `json:"review,omitempty" jsonschema:"optional review text"`
}

type TransferLeadershipParams struct {
	ID          string `json:"id" jsonschema:"project ID"`
	AccountID   string `json:"account_id" jsonschema:"account receiving leadership"`
	DisplayName string `json:"display_name,omitempty" jsonschema:"display name of the receiving account"`
}

type SetGoalParams struct {
	ID    string `json:"id" jsonschema:"project ID"`
	Title string `json:"title" jsonschema:"goal title"`
}

type AddDeliverableParams struct {
	ID    string `json:"id" jsonschema:"project ID"`
	URL   string `json:"url" jsonschema:"http(s) link to the delivered work"`
	Title string `json:"title,omitempty" jsonschema:"short title"`
}

type RecentActivityParams struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"only events for this project"`
	Type      string `json:"type,omitempty" jsonschema:"only events of this type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of events"`
	Offset    int    `json:"offset,omitempty" jsonschema:"offset for pagination"`
}

// ProjectSummary is the list view of a project.
type ProjectSummary struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Status        project.Status `json:"status"`
	RepositoryURL string         `json:"repository_url,omitempty"`
	Website       string         `json:"website,omitempty"`
	Leader        string         `json:"leader,omitempty"`
	ClaimedBy     string         `json:"claimed_by,omitempty"`
	Mentions      int            `json:"mentions"`
	Archived      bool           `json:"archived,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type ListProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

type RecentActivityResponse struct {
	Events []activity.Event `json:"events"`
}

func summarize(p *project.Project) ProjectSummary {
	s := ProjectSummary{
		ID:            p.ID,
		Title:         p.Title,
		Status:        p.Status,
		RepositoryURL: p.RepositoryURL,
		Mentions:      p.Mentions,
		Archived:      p.Archived,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Website != nil {
		s.Website = p.Website.URL
	}
	if p.Leader != nil {
		s.Leader = p.Leader.Account.ID
	}
	if p.ClaimedBy != nil {
		s.ClaimedBy = p.ClaimedBy.Account.ID
	}
	return s
}
