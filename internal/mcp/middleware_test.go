package mcp

import (
	"context"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/identity"
)

type verifierStub struct {
	accounts map[string]project.Account
	calls    int
}

func (v *verifierStub) Verify(_ context.Context, token string) (project.Account, error) {
	v.calls++
	acct, ok := v.accounts[token]
	if !ok {
		return project.Account{}, identity.ErrUnauthenticated
	}
	return acct, nil
}

func requestWithHeader(auth string) *sdkmcp.CallToolRequest {
	header := http.Header{}
	if auth != "" {
		header.Set("Authorization", auth)
	}
	return &sdkmcp.CallToolRequest{Extra: &sdkmcp.RequestExtra{Header: header}}
}

func captureActor(got *project.Account) sdkmcp.MethodHandler {
	return func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		*got, _ = actorFrom(ctx)
		return &sdkmcp.CallToolResult{}, nil
	}
}

func TestAuthMiddlewareResolvesActor(t *testing.T) {
	verifier := &verifierStub{accounts: map[string]project.Account{"tok": alice}}
	var got project.Account
	handler := authMiddleware(verifier)(captureActor(&got))

	_, err := handler(context.Background(), "tools/call", requestWithHeader("Bearer tok"))
	require.NoError(t, err)
	require.Equal(t, alice, got)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	verifier := &verifierStub{accounts: map[string]project.Account{}}
	var got project.Account
	handler := authMiddleware(verifier)(captureActor(&got))

	_, err := handler(context.Background(), "tools/call", requestWithHeader(""))
	require.ErrorContains(t, err, "missing bearer token")
	require.Zero(t, verifier.calls)

	_, err = handler(context.Background(), "tools/call", requestWithHeader("Bearer nope"))
	require.ErrorIs(t, err, identity.ErrUnauthenticated)
	require.Empty(t, got.ID)
}

func TestAuthMiddlewareSkipsHandshake(t *testing.T) {
	verifier := &verifierStub{}
	var got project.Account
	handler := authMiddleware(verifier)(captureActor(&got))

	_, err := handler(context.Background(), "initialize", requestWithHeader(""))
	require.NoError(t, err)
	require.Zero(t, verifier.calls)
}

func TestNoAuthMiddlewareInjectsLocalActor(t *testing.T) {
	var got project.Account
	handler := noAuthMiddleware(LocalActor)(captureActor(&got))

	_, err := handler(context.Background(), "tools/call", requestWithHeader(""))
	require.NoError(t, err)
	require.Equal(t, LocalActor, got)
}
