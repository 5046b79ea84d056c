package github

import (
	"context"
	"fmt"
	"time"

	"github.com/ganot/forge-registry/internal/domain/project"
)

type user struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
}

type label struct {
	Name string `json:"name"`
}

type repoResponse struct {
	Archived    bool     `json:"archived"`
	Stars       int      `json:"stargazers_count"`
	Homepage    string   `json:"homepage"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	Owner       user     `json:"owner"`
}

type issueResponse struct {
	State  string  `json:"state"`
	Labels []label `json:"labels"`
	User   user    `json:"user"`
}

type pullResponse struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	HTMLURL  string     `json:"html_url"`
	State    string     `json:"state"`
	Merged   bool       `json:"merged"`
	MergedAt *time.Time `json:"merged_at"`
	Labels   []label    `json:"labels"`
	User     user       `json:"user"`
}

func labelNames(ls []label) []string {
	if len(ls) == 0 {
		return nil
	}
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

// Repository fetches repository state.
func (c *Client) Repository(ctx context.Context, owner, name string) (*project.Snapshot, error) {
	var r repoResponse
	if err := c.getJSON(ctx, repoPath(owner, name), &r); err != nil {
		return nil, err
	}
	return &project.Snapshot{
		Kind:        project.KindRepo,
		Archived:    r.Archived,
		Labels:      r.Topics,
		Stars:       r.Stars,
		Homepage:    r.Homepage,
		Description: r.Description,
		Owner:       r.Owner.Login,
	}, nil
}

// Issue fetches issue state.
func (c *Client) Issue(ctx context.Context, owner, name string, number int) (*project.Snapshot, error) {
	var r issueResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/issues/%d", repoPath(owner, name), number), &r); err != nil {
		return nil, err
	}
	return &project.Snapshot{
		Kind:   project.KindIssue,
		Closed: r.State == "closed",
		Labels: labelNames(r.Labels),
		Owner:  r.User.Login,
	}, nil
}

// PullRequest fetches pull request state.
func (c *Client) PullRequest(ctx context.Context, owner, name string, number int) (*project.Snapshot, error) {
	var r pullResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/pulls/%d", repoPath(owner, name), number), &r); err != nil {
		return nil, err
	}
	return &project.Snapshot{
		Kind:   project.KindPR,
		Closed: r.State == "closed",
		Merged: r.Merged || r.MergedAt != nil,
		Labels: labelNames(r.Labels),
		Owner:  r.User.Login,
	}, nil
}

// Snapshot fetches the state of whatever ref points at.
func (c *Client) Snapshot(ctx context.Context, ref project.RepoRef) (*project.Snapshot, error) {
	switch ref.Kind {
	case project.KindIssue:
		return c.Issue(ctx, ref.Owner, ref.Name, ref.Number)
	case project.KindPR:
		return c.PullRequest(ctx, ref.Owner, ref.Name, ref.Number)
	default:
		return c.Repository(ctx, ref.Owner, ref.Name)
	}
}

// PullRequest is a closed pull request.
type PullRequest struct {
	Number   int
	Title    string
	URL      string
	Author   string
	AuthorID int64
	MergedAt *time.Time
}

// ClosedPullRequests lists the most recently updated closed pull requests.
func (c *Client) ClosedPullRequests(ctx context.Context, owner, name string) ([]PullRequest, error) {
	var rs []pullResponse
	path := repoPath(owner, name) + "/pulls?state=closed&sort=updated&direction=desc&per_page=30"
	if err := c.getJSON(ctx, path, &rs); err != nil {
		return nil, err
	}
	out := make([]PullRequest, 0, len(rs))
	for _, r := range rs {
		out = append(out, PullRequest{
			Number:   r.Number,
			Title:    r.Title,
			URL:      r.HTMLURL,
			Author:   r.User.Login,
			AuthorID: r.User.ID,
			MergedAt: r.MergedAt,
		})
	}
	return out, nil
}

// Contributor is a repository contributor.
type Contributor struct {
	Login         string
	ID            int64
	Contributions int
}

type contributorResponse struct {
	user
	Contributions int `json:"contributions"`
}

// Contributors lists human contributors. Empty repositories yield none.
func (c *Client) Contributors(ctx context.Context, owner, name string) ([]Contributor, error) {
	var rs []contributorResponse
	if err := c.getJSON(ctx, repoPath(owner, name)+"/contributors?per_page=100", &rs); err != nil {
		return nil, err
	}
	out := make([]Contributor, 0, len(rs))
	for _, r := range rs {
		if r.Type == "Bot" {
			continue
		}
		out = append(out, Contributor{Login: r.Login, ID: r.ID, Contributions: r.Contributions})
	}
	return out, nil
}

// Readme fetches the raw README text.
func (c *Client) Readme(ctx context.Context, owner, name string) (string, error) {
	body, err := c.get(ctx, repoPath(owner, name)+"/readme", acceptRaw)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
