package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies the caller of an operation as forwarded by the identity
// proxy in front of the API.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// Role names forwarded by the identity proxy. RoleSystem marks scheduled work.
const (
	RoleClient = "client"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
