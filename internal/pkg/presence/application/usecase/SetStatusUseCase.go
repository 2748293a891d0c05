package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	presence "gigpulse/internal/pkg/presence/application/domain"
	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// SetStatusInput sets a user's status. Context is an optional free-form hint
// such as the page or conversation the user is looking at.
type SetStatusInput struct {
	UserID  string
	Status  schema.PresenceStatus
	Context *string
}

// SetStatusUseCase upserts the presence row and announces it on the presence topic.
type SetStatusUseCase struct {
	Repo      repository.PresenceRepository
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewSetStatusUseCase(repo repository.PresenceRepository, pub realtime.Publisher, logger *zap.Logger) *SetStatusUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetStatusUseCase{Repo: repo, Publisher: pub, Logger: logger}
}

// Execute is idempotent: repeating the same input only refreshes last_seen.
func (uc *SetStatusUseCase) Execute(ctx context.Context, in SetStatusInput) (*schema.UserPresence, error) {
	if in.UserID == "" {
		return nil, schema.NewValidationError("user_id", "is required")
	}

	current, err := uc.Repo.Get(ctx, in.UserID)
	switch {
	case errors.Is(err, schema.ErrNotFound):
		current = schema.UserPresence{UserID: in.UserID, Status: schema.StatusOffline}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := presence.Transition(current.Status, in.Status); err != nil {
		return nil, err
	}

	p := schema.UserPresence{
		UserID:         in.UserID,
		Status:         in.Status,
		LastSeen:       nowOr(uc.Now),
		CurrentContext: in.Context,
	}
	if err := uc.Repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	announce(ctx, uc.Publisher, uc.Logger, p)
	return &p, nil
}

// announce publishes p on the presence topic. Presence is best effort, so a
// transport failure is logged and dropped.
func announce(ctx context.Context, pub realtime.Publisher, logger *zap.Logger, p schema.UserPresence) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, realtime.PresenceTopic, schema.PresenceStateEvent(p)); err != nil {
		logger.Debug("presence update dropped",
			zap.String("user_id", p.UserID),
			zap.String("status", string(p.Status)),
			zap.Error(err),
		)
	}
}
