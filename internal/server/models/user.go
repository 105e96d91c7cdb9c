// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered household member. PasswordHash never leaves the
// server; handlers map User to an outward representation without it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	// AvatarKey is the object-storage key of the user's avatar, empty when unset.
	AvatarKey string
	// Preferences is an opaque JSON document owned by the browser client
	// (dashboard layout, units, theme).
	Preferences []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
