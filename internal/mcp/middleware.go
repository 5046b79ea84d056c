package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/identity"
)

type contextKey int

const actorKey contextKey = iota

// withActor stores the calling account in the context.
func withActor(ctx context.Context, actor project.Account) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// actorFrom extracts the calling account from context.
func actorFrom(ctx context.Context) (project.Account, bool) {
	v, ok := ctx.Value(actorKey).(project.Account)
	return v, ok && v.ID != ""
}

// authMiddleware resolves the bearer credential to an account.
func authMiddleware(verifier identity.Verifier) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Protocol handshakes carry no credential.
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			actor, err := verifier.Verify(ctx, token)
			if err != nil {
				if errors.Is(err, identity.ErrUnauthenticated) {
					return nil, fmt.Errorf("unauthorized: %w", err)
				}
				return nil, fmt.Errorf("identity lookup: %w", err)
			}

			return next(withActor(ctx, actor), method, req)
		}
	}
}

// noAuthMiddleware injects a fixed actor when auth is disabled.
func noAuthMiddleware(actor project.Account) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(withActor(ctx, actor), method, req)
		}
	}
}
