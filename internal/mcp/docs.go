package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `forge-registry tracks community projects: who founded and leads them, who contributes, what has shipped, and where they are deployed.

Core concepts:
- Project: a registry entry, optionally linked to a GitHub repository, issue or pull request.
- Status: todo, in-progress, done, shipped, paid, blocked. Linked projects follow their GitHub state and never regress.
- Leader: one account steers the project. Leadership can be claimed when the leader has been inactive for 30 days.
- Work claim: at most one account holds the exclusive work claim.
- Website: discovered automatically by the background scanner; each URL belongs to at most one project.

Workflow:
1) Browse with list_projects and get_project.
2) Check history with get_recent_activity.
3) Mutate with the project tools. A CONFLICT error means another writer got there first: retry the request.

Docs:
- forge://docs/index
- forge://docs/status
- forge://docs/scanner
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "forge://docs/index",
		Name:        "docs_index",
		Title:       "forge-registry docs index",
		Description: "What the registry holds and which tool does what.",
		Content: `# forge-registry docs

## Tools

- ` + "`create_project`" + `: you become founder and leader.
- ` + "`list_projects`" + ` / ` + "`get_project`" + `: read the registry. Archived projects are hidden unless requested.
- ` + "`update_project`" + `: edit text fields. A repository URL may only change to another URL of the same kind.
- ` + "`set_status`" + `: done, shipped, paid or blocked.
- ` + "`rate_project`" + `: one rating per account, 1 to 5.
- ` + "`claim_work`" + ` / ` + "`release_work`" + `: exclusive work claim.
- ` + "`claim_leadership`" + ` / ` + "`transfer_leadership`" + `
- ` + "`set_goal`" + ` / ` + "`complete_goal`" + `: one active goal at a time.
- ` + "`add_deliverable`" + `: link to shipped work.
- ` + "`get_recent_activity`" + `: the audit log.

## Errors

Tool errors carry a code and a recovery hint. ` + "`CONFLICT`" + ` is always safe to retry.
`,
	},
	{
		URI:         "forge://docs/status",
		Name:        "docs_status",
		Title:       "How project status is derived",
		Description: "Status rules for linked and unlinked projects.",
		Content: `# Project status

Unlinked projects keep whatever status was set by hand.

Linked projects follow GitHub on every refresh:

| GitHub state | Status |
|---|---|
| open repository, issue or pull request | in-progress |
| closed issue | done |
| merged pull request | done |
| closed unmerged pull request | blocked |
| archived repository | done |

Done, shipped and paid are terminal: a refresh never moves them.
No refresh lowers a status, and a blocked status set by hand only moves forward.

After three consecutive refreshes where the linked resource is missing the
project is archived. It comes back automatically when the resource reappears.
`,
	},
	{
		URI:         "forge://docs/scanner",
		Name:        "docs_scanner",
		Title:       "Background scanner",
		Description: "What the periodic scan updates and how often.",
		Content: `# Background scanner

Each scan runs these tasks in order within a time budget:

1. refresh: re-read linked GitHub resources and recompute status.
2. mentions: count new feed messages that mention a project.
3. contributors: add repository contributors.
4. events: turn merged pull requests into deliverables.
5. website: discover and claim deployment URLs.
6. backfill: fill missing project titles in the audit log.

Per-source cooldowns keep GitHub traffic low. Sources that fail repeatedly
back off to a longer interval.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
