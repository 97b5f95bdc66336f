// Package users stores one UserProfile per user id.
package users

import (
	"context"

	"github.com/dmitrijs2005/secdrive/internal/server/models"
)

type Repository interface {
	// Create inserts a new profile; an existing user id yields common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.UserProfile) error
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	// Update merges the non-nil fields of upd into the stored profile.
	Update(ctx context.Context, userID string, upd models.ProfileUpdate) error
}
