package repository

import (
	"context"
)

// Profile is the slice of a user's profile the senders need.
type Profile struct {
	ID       string
	Email    string
	FullName string
}

type ProfileRepository interface {
	// GetProfile returns schema.ErrNotFound for an unknown user.
	GetProfile(ctx context.Context, userID string) (Profile, error)
}
