package rbac

import "time"

// Role represents a high-level permission grouping. Roles are seeded lookup
// data; a user holds exactly one role at a time.
type Role struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Permission ties a capability code to a role.
type Permission struct {
	RoleID int64
	Code   string
}
