package repository

import (
	"context"

	"gigpulse/internal/pkg/schema"
)

// PresenceRepository persists the one-row-per-user presence record.
type PresenceRepository interface {
	// Get returns schema.ErrNotFound for a user that never reported presence.
	Get(ctx context.Context, userID string) (schema.UserPresence, error)
	Upsert(ctx context.Context, p schema.UserPresence) error
	// ListActive returns every row whose status is not offline.
	ListActive(ctx context.Context) ([]schema.UserPresence, error)
}
