package domain

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoActiveSession  = errors.New("no active session")
	ErrUnauthorized     = errors.New("missing or expired credentials")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrGuestMode        = errors.New("not available in guest mode")
	ErrForbidden        = errors.New("admin role required")
	ErrValidation       = errors.New("invalid input")
	ErrStateNotFound    = errors.New("client state not found")
	ErrPatternNotFound  = errors.New("breathing pattern not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNoQuotes         = errors.New("no quotes available")
	ErrMalformedRecord  = errors.New("malformed dialog record")
)

// ValidationError carries a user-facing reason and unwraps to ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
