package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a bearer token that fails signature or expiry checks.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrSessionExpired indicates a well-formed token whose server session is gone.
	ErrSessionExpired = errors.New("session expired")
)
