package authz

import (
	"context"

	"github.com/jrsteele09/dietitian-server/users"
)

// Identity is the minimal view of the authenticated caller.
type Identity struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Role           users.Role `json:"role"`
	OrganizationID string     `json:"organizationId"`
}

func (i *Identity) IsSuperAdmin() bool {
	return i.Role == users.RoleSuperAdmin
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const contextKeyIdentity ContextKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

// IdentityFrom returns the identity stored by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKeyIdentity).(*Identity)
	return id
}
