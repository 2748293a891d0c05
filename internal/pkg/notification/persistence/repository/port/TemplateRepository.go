package repository

import (
	"context"

	"gigpulse/internal/pkg/schema"
)

type TemplateRepository interface {
	// ListActive returns every active template for (triggerKey, channel). More
	// than one row is a data problem the caller resolves.
	ListActive(ctx context.Context, triggerKey string, channel schema.Channel) ([]schema.NotificationTemplate, error)
	Upsert(ctx context.Context, tpl schema.NotificationTemplate) error
}
