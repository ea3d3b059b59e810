package middleware

import (
	"context"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
)

type contextKey string

const ctxCaller contextKey = "caller"

// CallerFromContext returns the authenticated caller or nil for anonymous requests.
func CallerFromContext(ctx context.Context) *access.Caller {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxCaller).(*access.Caller); ok {
		return v
	}
	return nil
}

// WithCaller injects the caller into the context for downstream handlers.
func WithCaller(ctx context.Context, caller *access.Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, caller)
}
