package repository

import (
	"context"

	"gigpulse/internal/pkg/schema"
)

type DeviceTokenRepository interface {
	// Register upserts (user_id, token) as active and deactivates the same
	// token for every other user, so a token is active for one user at most.
	Register(ctx context.Context, t schema.DeviceToken) error
	// Deactivate flips is_active off for every row holding token and returns
	// how many rows exist for it. Rows are never deleted.
	Deactivate(ctx context.Context, token string) (int64, error)
	ListActive(ctx context.Context, userID string) ([]schema.DeviceToken, error)
}
