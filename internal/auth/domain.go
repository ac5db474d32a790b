package auth

import "time"

// User represents an authenticated user account. Accounts are never deleted,
// only soft-disabled via IsActive.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  string
	RoleID       int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
