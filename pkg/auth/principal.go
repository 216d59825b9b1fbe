package auth

import (
	"context"

	"photopedia-backend/domain/core/entities"
)

// Principal is the authenticated identity attached to a request after
// a token has been verified and resolved to a user record.
type Principal struct {
	UserID string
	Email  string
	Role   entities.Role
}

// HasRole reports whether the principal holds any of the given roles.
func (p *Principal) HasRole(roles ...entities.Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

type contextKey string

const principalKey contextKey = "principal"

// SetPrincipal attaches the principal to the context.
func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal extracts the principal from the context. The second
// return is false on unauthenticated (guest) requests.
func GetPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
