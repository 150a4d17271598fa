// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package authz

import "context"

type contextKey struct{}

// WithActor attaches the resolved actor to ctx.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// ActorFromContext retrieves the actor from ctx, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	if a, ok := ctx.Value(contextKey{}).(*Actor); ok {
		return a
	}
	return nil
}
