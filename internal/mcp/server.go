package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/identity"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, actor project.Account, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context, filter project.ListFilter) ([]*project.Project, error)
	Update(ctx context.Context, actor project.Account, id string, req project.UpdateRequest) (*project.Project, error)
	SetStatus(ctx context.Context, actor project.Account, id string, status project.Status) (*project.Project, error)
	Rate(ctx context.Context, actor project.Account, id string, score int, review string) (*project.Project, error)
	ClaimWork(ctx context.Context, actor project.Account, id string) (*project.Project, error)
	ReleaseWork(ctx context.Context, actor project.Account, id string) (*project.Project, error)
	ClaimLeadership(ctx context.Context, actor project.Account, id string) (*project.Project, error)
	TransferLeadership(ctx context.Context, actor project.Account, id string, to project.Account) (*project.Project, error)
	SetGoal(ctx context.Context, actor project.Account, id, title string) (*project.Project, error)
	CompleteGoal(ctx context.Context, actor project.Account, id string) (*project.Project, error)
	AddDeliverable(ctx context.Context, actor project.Account, id, url, title string) (*project.Project, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListOptions) ([]activity.Event, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Projects ProjectService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Verifier      identity.Verifier
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// LocalActor is the account used for every call when auth is off.
var LocalActor = project.Account{ID: "local", DisplayName: "local"}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "forge-registry",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local-only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Verifier))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(LocalActor))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, newToolset(cfg.Services, cfg.Logger))

	return server
}
