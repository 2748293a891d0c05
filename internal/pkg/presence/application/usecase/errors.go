package usecase

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"gigpulse/internal/pkg/schema"
)

// ErrPersistence is re-exported so callers of this package need not import schema.
var ErrPersistence = schema.ErrPersistence

var heartbeats, _ = otel.Meter("gigpulse/presence").Int64Counter("presence_heartbeats_total",
	metric.WithDescription("Presence heartbeats by outcome"))

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
