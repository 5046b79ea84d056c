package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// toolset holds the tool handlers. Handlers return tool-level errors as
// results with IsError set so the client can read the code and hint.
type toolset struct {
	projects ProjectService
	activity ActivityService
	logger   *slog.Logger
}

func newToolset(services Services, logger *slog.Logger) *toolset {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &toolset{projects: services.Projects, activity: services.Activity, logger: logger}
}

func registerTools(server *sdkmcp.Server, t *toolset) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "create_project", Description: "Create a project. You become its founder and leader."}, t.createProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_project", Description: "Get the full record of one project"}, t.getProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_projects", Description: "List projects, optionally filtered by status"}, t.listProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "update_project", Description: "Edit title, description, repository URL or search terms"}, t.updateProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "set_status", Description: "Set a manual status (done, shipped, paid, blocked)"}, t.setStatus)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "rate_project", Description: "Rate a project from 1 to 5. Rating again replaces your previous rating."}, t.rateProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "claim_work", Description: "Claim exclusive work on a project"}, t.claimWork)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "release_work", Description: "Release your work claim"}, t.releaseWork)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "claim_leadership", Description: "Take leadership of a project without a leader or whose leader has been inactive for 30 days"}, t.claimLeadership)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "transfer_leadership", Description: "Hand leadership to another account. Leader only."}, t.transferLeadership)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "set_goal", Description: "Set the active goal. The previous goal moves to history."}, t.setGoal)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "complete_goal", Description: "Mark the active goal complete"}, t.completeGoal)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "add_deliverable", Description: "Attach a link to delivered work"}, t.addDeliverable)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "get_recent_activity", Description: "Read the audit log, newest first"}, t.recentActivity)
}

func (t *toolset) createProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateProjectParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "create_project", func(actor project.Account) (any, error) {
		return t.projects.Create(ctx, actor, project.CreateRequest{
			Title:         in.Title,
			Description:   in.Description,
			RepositoryURL: in.RepositoryURL,
			SearchTerms:   in.SearchTerms,
		})
	})
}

func (t *toolset) getProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectIDParams) (*sdkmcp.CallToolResult, any, error) {
	p, err := t.projects.Get(ctx, in.ID)
	return t.respond("get_project", p, err)
}

func (t *toolset) listProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListProjectsParams) (*sdkmcp.CallToolResult, any, error) {
	projects, err := t.projects.List(ctx, project.ListFilter{
		Status:          project.Status(strings.TrimSpace(in.Status)),
		IncludeArchived: in.IncludeArchived,
	})
	if err != nil {
		return t.respond("list_projects", nil, err)
	}
	resp := ListProjectsResponse{Projects: make([]ProjectSummary, 0, len(projects))}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, summarize(p))
	}
	return t.respond("list_projects", resp, nil)
}

func (t *toolset) updateProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateProjectParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "update_project", func(actor project.Account) (any, error) {
		return t.projects.Update(ctx, actor, in.ID, project.UpdateRequest{
			Title:         in.Title,
			Description:   in.Description,
			RepositoryURL: in.RepositoryURL,
			SearchTerms:   in.SearchTerms,
		})
	})
}

func (t *toolset) setStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetStatusParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "set_status", func(actor project.Account) (any, error) {
		return t.projects.SetStatus(ctx, actor, in.ID, project.Status(strings.TrimSpace(in.Status)))
	})
}

func (t *toolset) rateProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in RateProjectParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "rate_project", func(actor project.Account) (any, error) {
		return t.projects.Rate(ctx, actor, in.ID, in.Score, in.Review)
	})
}

func (t *toolset) claimWork(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectIDParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "claim_work", func(actor project.Account) (any, error) {
		return t.projects.ClaimWork(ctx, actor, in.ID)
	})
}

func (t *toolset) releaseWork(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectIDParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "release_work", func(actor project.Account) (any, error) {
		return t.projects.ReleaseWork(ctx, actor, in.ID)
	})
}

func (t *toolset) claimLeadership(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectIDParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "claim_leadership", func(actor project.Account) (any, error) {
		return t.projects.ClaimLeadership(ctx, actor, in.ID)
	})
}

func (t *toolset) transferLeadership(ctx context.Context, _ *sdkmcp.CallToolRequest, in TransferLeadershipParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "transfer_leadership", func(actor project.Account) (any, error) {
		to := project.Account{ID: strings.TrimSpace(in.AccountID), DisplayName: in.DisplayName}
		return t.projects.TransferLeadership(ctx, actor, in.ID, to)
	})
}

func (t *toolset) setGoal(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetGoalParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "set_goal", func(actor project.Account) (any, error) {
		return t.projects.SetGoal(ctx, actor, in.ID, in.Title)
	})
}

func (t *toolset) completeGoal(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectIDParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "complete_goal", func(actor project.Account) (any, error) {
		return t.projects.CompleteGoal(ctx, actor, in.ID)
	})
}

func (t *toolset) addDeliverable(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddDeliverableParams) (*sdkmcp.CallToolResult, any, error) {
	return t.asActor(ctx, "add_deliverable", func(actor project.Account) (any, error) {
		return t.projects.AddDeliverable(ctx, actor, in.ID, in.URL, in.Title)
	})
}

func (t *toolset) recentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, any, error) {
	opts := activity.ListOptions{
		ProjectID: in.ProjectID,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultActivityLimit
	}
	if opts.Limit > maxActivityLimit {
		opts.Limit = maxActivityLimit
	}
	if in.Type != "" {
		typ := activity.EventType(in.Type)
		opts.Type = &typ
	}
	events, err := t.activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return t.respond("get_recent_activity", nil, err)
	}
	if events == nil {
		events = []activity.Event{}
	}
	return t.respond("get_recent_activity", RecentActivityResponse{Events: events}, nil)
}

// asActor runs fn for the authenticated caller.
func (t *toolset) asActor(ctx context.Context, tool string, fn func(project.Account) (any, error)) (*sdkmcp.CallToolResult, any, error) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return errorResult(&APIError{Code: "UNAUTHORIZED", Message: "no authenticated account", RecoveryHint: "Send a bearer token"})
	}
	out, err := fn(actor)
	return t.respond(tool, out, err)
}

func (t *toolset) respond(tool string, out any, err error) (*sdkmcp.CallToolResult, any, error) {
	if err != nil {
		apiErr := MapError(err)
		if apiErr.Code == "INTERNAL" {
			t.logger.Error("tool failed", "tool", tool, "error", err)
		}
		return errorResult(apiErr)
	}
	return jsonResult(out)
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(apiErr *APIError) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(apiErr)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
