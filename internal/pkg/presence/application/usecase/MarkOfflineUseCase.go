package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type MarkOfflineInput struct {
	UserID string
}

// MarkOfflineUseCase records a session end. Any status may go offline.
type MarkOfflineUseCase struct {
	Repo      repository.PresenceRepository
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewMarkOfflineUseCase(repo repository.PresenceRepository, pub realtime.Publisher, logger *zap.Logger) *MarkOfflineUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkOfflineUseCase{Repo: repo, Publisher: pub, Logger: logger}
}

func (uc *MarkOfflineUseCase) Execute(ctx context.Context, in MarkOfflineInput) error {
	if in.UserID == "" {
		return schema.NewValidationError("user_id", "is required")
	}
	p := schema.UserPresence{
		UserID:   in.UserID,
		Status:   schema.StatusOffline,
		LastSeen: nowOr(uc.Now),
	}
	if err := uc.Repo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	announce(ctx, uc.Publisher, uc.Logger, p)
	return nil
}
