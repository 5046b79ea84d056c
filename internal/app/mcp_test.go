package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/ganot/forge-registry/internal/domain/project"
)

// mcpSession connects an in-memory client to the app's MCP server.
func mcpSession(t *testing.T, a *App) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := a.MCPServer("test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestMCPProjectLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Mode = "stdio"
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	session := mcpSession(t, a)

	out, isErr := callTool(t, session, "create_project", map[string]any{
		"title":          "Forge",
		"repository_url": "https://github.com/acme/forge",
	})
	require.False(t, isErr, out)
	var created project.Project
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Equal(t, "local", created.Founder.ID)

	out, isErr = callTool(t, session, "claim_work", map[string]any{"id": created.ID})
	require.False(t, isErr, out)

	out, isErr = callTool(t, session, "set_status", map[string]any{"id": created.ID, "status": "todo"})
	require.True(t, isErr)
	require.Contains(t, out, "INVALID_INPUT")

	out, isErr = callTool(t, session, "get_project", map[string]any{"id": "missing"})
	require.True(t, isErr)
	require.Contains(t, out, "PROJECT_NOT_FOUND")

	out, isErr = callTool(t, session, "get_recent_activity", map[string]any{"project_id": created.ID})
	require.False(t, isErr, out)
	require.Contains(t, out, "work-claimed")
	require.Contains(t, out, "project-created")
}
