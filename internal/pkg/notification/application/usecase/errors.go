package usecase

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"gigpulse/internal/pkg/schema"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case.
var ErrPersistence = schema.ErrPersistence

// ErrNotOwner is returned when a user touches another user's notification.
var ErrNotOwner = fmt.Errorf("%w: notification belongs to another user", schema.ErrForbidden)

var dispatches, _ = otel.Meter("gigpulse/notification").Int64Counter("notification_dispatch_total",
	metric.WithDescription("Notification deliveries by channel and outcome"))

func persistence(err error) error {
	if errors.Is(err, schema.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
