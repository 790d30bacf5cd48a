package middleware

import (
	"context"

	"github.com/angelmondragon/fincore/pkg/enums"
)

// Actor is the authenticated caller attached by Auth.
type Actor struct {
	UserID string
	Role   enums.ActorRole
}

// CreatedBy renders the actor as "role:user", the form stored in created_by.
// The zero Actor renders as "".
func (a Actor) CreatedBy() string {
	if a.UserID == "" {
		return ""
	}
	return a.Role.String() + ":" + a.UserID
}

type actorKey struct{}

// WithActor attaches the caller to ctx.
func WithActor(ctx context.Context, userID string, role enums.ActorRole) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{UserID: userID, Role: role})
}

// ActorFrom returns the caller Auth attached, or the zero Actor.
func ActorFrom(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}
