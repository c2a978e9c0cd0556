package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leomorozovskii/erc721-rent/internal/domain/rent"
)

type contextKey int

const (
	identityKey contextKey = iota
)

// getIdentity extracts the authenticated caller from context.
func getIdentity(ctx context.Context) string {
	v, _ := ctx.Value(identityKey).(string)
	return v
}

// IdentityResolver resolves the caller identity from a bearer token.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver IdentityResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
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

			identity, err := resolver.ResolveIdentity(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if identity == "" {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			ctx = context.WithValue(ctx, identityKey, identity)
			return next(ctx, method, req)
		}
	}
}

// callerFrom picks the acting identity for a tool call. An authenticated
// identity always wins and may not be overridden by the caller argument.
// Without authentication the argument names the caller.
func callerFrom(ctx context.Context, claimed string) (rent.Address, error) {
	identity := getIdentity(ctx)
	if identity == "" {
		return rent.Address(claimed), nil
	}
	if claimed != "" && claimed != identity {
		return rent.ZeroAddress, &APIError{
			Code:         string(rent.KindUnauthorized),
			Message:      fmt.Sprintf("authenticated as %q, cannot act as %q", identity, claimed),
			RecoveryHint: "Omit caller when using a bearer token",
		}
	}
	return rent.Address(identity), nil
}
