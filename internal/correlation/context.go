// Package correlation carries request correlation ids through context.Context
// so they reach logs and Kafka headers outside the HTTP layer.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// WithID returns a copy of ctx carrying id
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation id, or "" when none is set
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ensure returns ctx and its correlation id, generating one when absent
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.New().String()
	return WithID(ctx, id), id
}
