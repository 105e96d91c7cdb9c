// Package common defines shared constants and sentinel errors used across
// the homedash server components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrorEmailTaken = errors.New("email already in use")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorValidation       = errors.New("validation error")
	ErrorStoreUnavailable = errors.New("store unavailable")

	// Credential errors. Unknown email and wrong password both map to
	// ErrorInvalidCredentials so the caller cannot tell which part failed.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthenticated    = errors.New("unauthenticated")

	// Auth errors (invalid or malformed token).
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")

	// Refresh-session lifecycle errors. Replay of a rotated token, logout,
	// expiry, and a lost rotation race all surface as ErrSessionInvalid.
	ErrSessionInvalid  = errors.New("refresh token invalid or revoked")
	ErrSessionNotFound = errors.New("refresh session not found")

	// Rate limiting.
	ErrorRateLimited = errors.New("rate limited")
)
