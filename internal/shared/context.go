package shared

import (
	"context"
	"time"
)

// Principal describes the authenticated actor attached to a request.
type Principal struct {
	UserID      int64
	TokenID     string
	ExpiresAt   time.Time
	Permissions []Code
}

// HasPermission reports whether the principal carries the exact code.
func (p *Principal) HasPermission(code Code) bool {
	if p == nil {
		return false
	}
	for _, c := range p.Permissions {
		if c == code {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
