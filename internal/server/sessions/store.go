// Package sessions implements the revocation surface for refresh tokens:
// a Redis-backed store of refresh-session records with TTL-based expiry.
//
// A refresh token is live only while its record is present here. Rotation
// consumes the old record atomically, so of two concurrent refresh calls
// presenting the same token exactly one can win.
package sessions

import (
	"context"
	"time"
)

// Store is the session-store contract used by the user service.
type Store interface {
	// Save registers token as a live refresh session owned by userID.
	// The record expires on its own after ttl.
	Save(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Consume atomically removes the record for token and returns the owning
	// user id. A missing record (rotated away, logged out, expired, or a lost
	// race) yields common.ErrSessionNotFound.
	Consume(ctx context.Context, token string) (string, error)

	// Delete removes the record for token if present. Deleting an absent
	// record is not an error.
	Delete(ctx context.Context, token string) error
}
