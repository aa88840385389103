// Package auth holds the request-scoped principal and the guard predicates
// that every mutating storefront operation goes through.
package auth

import (
	"context"
	"errors"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("login required")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated user behind the current request
type Principal struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Username  string
	Role      domain.Role
}

// IsAdmin reports whether the principal holds the admin role
func (p *Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal set by WithPrincipal
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// RequireAuthenticated fails with ErrUnauthenticated when ctx has no principal
func RequireAuthenticated(ctx context.Context) (*Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return p, nil
}

// RequireRole fails with ErrUnauthenticated when ctx has no principal and
// with ErrForbidden when the principal's role differs from role
func RequireRole(ctx context.Context, role domain.Role) (*Principal, error) {
	p, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != role {
		return nil, ErrForbidden
	}
	return p, nil
}
