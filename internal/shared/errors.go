package shared

import "errors"

var (
	// ErrUnauthenticated indicates a missing, malformed, expired, or revoked token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid identity lacking the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrMethodNotAllowed indicates the path matched but the method did not.
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrConflict indicates an ambiguous route table or a menu cycle.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates the audit or menu store is unreachable.
	ErrUnavailable = errors.New("unavailable")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
