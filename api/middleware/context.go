package middleware

import (
	"context"

	"github.com/shoptracker/shoptracker-backend/pkg/db/models"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated account for the request, or
// nil when the caller is anonymous. The returned account is the
// middleware's own snapshot; handlers may read it freely.
func ActorFromContext(ctx context.Context) *models.Account {
	if ctx == nil {
		return nil
	}
	if actor, ok := ctx.Value(ctxActor).(*models.Account); ok {
		return actor
	}
	return nil
}

// WithActor injects the authenticated account into the context.
func WithActor(ctx context.Context, actor *models.Account) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
