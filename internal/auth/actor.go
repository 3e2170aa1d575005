package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type Role string

const (
	RoleTutor        Role = "tutor"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
	RoleSystem       Role = "system"
)

var ErrNoActor = errors.New("no actor in context")

// Actor is the caller identity consumed by every mutating operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// System is the internal actor used by the sweeper.
var System = Actor{ID: uuid.Nil, Role: RoleSystem}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleTutor, RoleProfessional, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, error) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	if !ok {
		return Actor{}, ErrNoActor
	}
	return a, nil
}
