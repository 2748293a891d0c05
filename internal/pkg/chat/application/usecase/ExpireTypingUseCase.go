package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type ExpireTypingInput struct {
	ConversationID string
	UserID         string
}

// ExpireTypingUseCase is the server-side typing sweep. It clears the indicator
// only if the same user still holds it and started at least TTL ago, so a
// fresh keystroke is never undone by an older sweep.
type ExpireTypingUseCase struct {
	Repo      repository.ChatRepository
	Publisher realtime.Publisher
	TTL       time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewExpireTypingUseCase(repo repository.ChatRepository, pub realtime.Publisher, ttl time.Duration, logger *zap.Logger) *ExpireTypingUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpireTypingUseCase{Repo: repo, Publisher: pub, TTL: ttl, Logger: logger}
}

// Execute reports whether an indicator was cleared.
func (uc *ExpireTypingUseCase) Execute(ctx context.Context, in ExpireTypingInput) (bool, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return false, schema.NewValidationError("conversation_id", "and user_id are required")
	}

	now := nowOr(uc.Now).UTC()
	_, cleared, err := uc.Repo.ExpireTyping(ctx, in.ConversationID, in.UserID, now.Add(-uc.TTL))
	if errors.Is(err, schema.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, persistence(err)
	}
	if cleared {
		publishTyping(ctx, uc.Publisher, uc.Logger, schema.TypingState{
			ConversationID: in.ConversationID,
			UserID:         in.UserID,
			IsTyping:       false,
			At:             now,
		})
	}
	return cleared, nil
}
