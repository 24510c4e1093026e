// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// Roles that may perform administrative rotation changes.
const (
	RoleAdmin   = "admin"
	RoleService = "service_role"
)

// AuthContext holds the authenticated identity extracted from a request.
type AuthContext struct {
	UserID string // token subject
	Email  string // empty for service tokens
	Role   string // e.g. "authenticated", "admin", "service_role"
}

// IsAdmin returns true for admin users and service tokens.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleService
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	val := ctx.Value(authContextKey{})
	if val == nil {
		return nil
	}
	auth, ok := val.(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}
