package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (i Identity) IsAdmin() bool {
	return i.Role == enums.UserRoleAdmin
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom reports false on requests that did not pass Auth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

// UserIDFromContext is the caller's id as a string, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.UserID.String()
	}
	return ""
}
