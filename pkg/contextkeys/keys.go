// Package contextkeys defines the typed context keys shared between the
// middleware chain and the HTTP handlers.
package contextkeys

import (
	"context"

	"github.com/makersite/makersite/pkg/policy"
)

// Key is a private context key type to avoid collisions
type Key string

const (
	// ActorKey carries the authenticated policy.Actor
	ActorKey Key = "actor"
	// RequestIDKey carries the per-request ULID
	RequestIDKey Key = "request_id"
	// ImpersonatorKey carries the admin id behind an impersonated request
	ImpersonatorKey Key = "impersonated_by"
)

// WithActor attaches the authenticated actor to the context
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFrom extracts the authenticated actor, if present
func ActorFrom(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(policy.Actor)
	return actor, ok
}

// WithRequestID attaches the request id to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFrom extracts the request id, if present
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithImpersonator marks the context as impersonated by an admin
func WithImpersonator(ctx context.Context, adminID int64) context.Context {
	return context.WithValue(ctx, ImpersonatorKey, adminID)
}

// ImpersonatorFrom returns the impersonating admin id, zero if none
func ImpersonatorFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(ImpersonatorKey).(int64)
	return id
}
