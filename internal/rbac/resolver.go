package rbac

import (
	"context"
	"errors"

	"github.com/lexdesk/lexdesk/internal/shared"
)

// Resolver maps roles to permission sets and answers authorization checks.
// Permission codes are flat and compared exactly; there is no wildcard or
// hierarchy expansion.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Authorize reports whether the principal's permission snapshot satisfies the
// required capability. An empty requirement means the route is unrestricted.
func (r *Resolver) Authorize(principal *shared.Principal, required shared.Code) bool {
	if required == "" {
		return true
	}
	return principal.HasPermission(required)
}

// PermissionsForRole returns a point-in-time snapshot of the role's permission
// codes. A role that does not exist resolves to the empty set, so every
// subsequent authorization check fails closed.
func (r *Resolver) PermissionsForRole(ctx context.Context, roleID int64) ([]shared.Code, error) {
	raw, err := r.repo.PermissionsForRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	codes := make([]shared.Code, len(raw))
	for i, c := range raw {
		codes[i] = shared.Code(c)
	}
	return codes, nil
}
