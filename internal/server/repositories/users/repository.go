// Package users declares the server-side repository contract for the
// credential store: durable user records keyed by id and unique email.
package users

import (
	"context"

	"github.com/dmitrijs2005/homedash/internal/server/models"
)

// Repository defines operations over persisted user records.
type Repository interface {
	// Create inserts a new user and returns it with the generated id.
	// A duplicate email yields common.ErrorEmailTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by its case-normalized email.
	// Returns common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks a user up by primary key.
	// Returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	// UpdateProfile replaces the mutable profile fields (name, avatar key,
	// preferences) and returns the updated user.
	UpdateProfile(ctx context.Context, id string, name string, avatarKey string, preferences []byte) (*models.User, error)
}
