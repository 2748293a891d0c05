package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	presence "gigpulse/internal/pkg/presence/application/domain"
	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type HeartbeatInput struct {
	UserID string
}

// HeartbeatUseCase refreshes last_seen for a live session.
type HeartbeatUseCase struct {
	Repo      repository.PresenceRepository
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewHeartbeatUseCase(repo repository.PresenceRepository, pub realtime.Publisher, logger *zap.Logger) *HeartbeatUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeartbeatUseCase{Repo: repo, Publisher: pub, Logger: logger}
}

// Execute keeps away/busy as they are and leaves offline users offline: only
// SetStatus(online) brings a user back.
func (uc *HeartbeatUseCase) Execute(ctx context.Context, in HeartbeatInput) (*schema.UserPresence, error) {
	if in.UserID == "" {
		return nil, schema.NewValidationError("user_id", "is required")
	}

	current, err := uc.Repo.Get(ctx, in.UserID)
	switch {
	case errors.Is(err, schema.ErrNotFound):
		current = schema.UserPresence{UserID: in.UserID, Status: schema.StatusOffline}
	case err != nil:
		heartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	status, alive := presence.HeartbeatStatus(current.Status)
	if !alive {
		heartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ignored")))
		return &current, nil
	}

	current.Status = status
	current.LastSeen = nowOr(uc.Now)
	if err := uc.Repo.Upsert(ctx, current); err != nil {
		heartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	heartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))

	announce(ctx, uc.Publisher, uc.Logger, current)
	return &current, nil
}
