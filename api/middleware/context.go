package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

type actorKey struct{}

// WithActor stores the caller on ctx. Auth calls it after verifying the
// token; controller tests call it directly.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext reports false when no usable caller is stored. The system
// role never authenticates over HTTP.
func ActorFromContext(ctx context.Context) (types.Actor, bool) {
	if ctx == nil {
		return types.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(types.Actor)
	if !ok || actor.ID == uuid.Nil || actor.Role == enums.ActorRoleSystem || !actor.Role.IsValid() {
		return types.Actor{}, false
	}
	return actor, true
}

func AuthenticatedActor(ctx context.Context) (types.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}

// callerID is the stable per-user key for rate limits and idempotency; empty
// for anonymous requests.
func callerID(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.ID.String()
	}
	return ""
}
