package repository

import (
	"context"

	"gigpulse/internal/pkg/schema"
)

// NotificationFilter narrows a user's inbox. A nil Types matches every type.
type NotificationFilter struct {
	UserID     string
	Types      []schema.NotificationType
	UnreadOnly bool
	Limit      int
}

type NotificationRepository interface {
	// Insert stores all rows or none.
	Insert(ctx context.Context, ns []schema.Notification) error
	// Get returns schema.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (schema.Notification, error)
	// MarkAsRead flips read on one row. It returns schema.ErrNotFound for an unknown id.
	MarkAsRead(ctx context.Context, id string) error
	// MarkAllAsRead flips every unread row of the user matching types and
	// returns how many changed. A nil types matches every type.
	MarkAllAsRead(ctx context.Context, userID string, types []schema.NotificationType) (int64, error)
	// List returns the newest rows first.
	List(ctx context.Context, f NotificationFilter) ([]schema.Notification, error)
}
