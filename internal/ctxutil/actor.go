// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// ActorKey is the context key for the acting sender or CLI user.
type ActorKey struct{}

// MessageKey is the context key for the inbound message id.
type MessageKey struct{}

// WithActorID returns a context with the actor ID embedded.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context, or empty string if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey{}).(string); ok {
		return v
	}
	return ""
}

// WithMessageID returns a context carrying the inbound message id.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, MessageKey{}, id)
}

// MessageIDFromContext returns the message id, or empty string if not set.
func MessageIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(MessageKey{}).(string); ok {
		return v
	}
	return ""
}
