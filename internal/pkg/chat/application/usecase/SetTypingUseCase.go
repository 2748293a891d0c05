package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// TypingExpiryScheduler arranges for a typing indicator to be swept once it
// has been held for the TTL.
type TypingExpiryScheduler interface {
	ScheduleTypingExpiry(ctx context.Context, conversationID, userID string, startedAt time.Time) error
}

type SetTypingInput struct {
	ConversationID string
	UserID         string
	IsTyping       bool
}

// SetTypingUseCase writes or clears the conversation's typing indicator and
// fans the change out. Clients send true on (throttled) keystrokes and false
// on send or after a few idle seconds; the optional Scheduler sweeps
// indicators whose client went away without clearing them.
type SetTypingUseCase struct {
	Repo      repository.ChatRepository
	Publisher realtime.Publisher
	Scheduler TypingExpiryScheduler
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewSetTypingUseCase(repo repository.ChatRepository, pub realtime.Publisher, scheduler TypingExpiryScheduler, logger *zap.Logger) *SetTypingUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetTypingUseCase{Repo: repo, Publisher: pub, Scheduler: scheduler, Logger: logger}
}

func (uc *SetTypingUseCase) Execute(ctx context.Context, in SetTypingInput) (*schema.TypingState, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, schema.NewValidationError("conversation_id", "and user_id are required")
	}
	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, persistence(err)
	}
	if !ok {
		return nil, chat.ErrNotParticipant
	}

	now := nowOr(uc.Now).UTC().Truncate(time.Microsecond)
	if in.IsTyping {
		if _, err := uc.Repo.StartTyping(ctx, in.ConversationID, in.UserID, now); err != nil {
			return nil, persistence(err)
		}
		if uc.Scheduler != nil {
			if err := uc.Scheduler.ScheduleTypingExpiry(ctx, in.ConversationID, in.UserID, now); err != nil {
				uc.Logger.Warn("typing expiry not scheduled",
					zap.String("conversation_id", in.ConversationID),
					zap.String("user_id", in.UserID),
					zap.Error(err),
				)
			}
		}
	} else {
		if _, _, err := uc.Repo.StopTyping(ctx, in.ConversationID, in.UserID); err != nil {
			return nil, persistence(err)
		}
	}

	state := schema.TypingState{ConversationID: in.ConversationID, UserID: in.UserID, IsTyping: in.IsTyping, At: now}
	publishTyping(ctx, uc.Publisher, uc.Logger, state)
	return &state, nil
}

// publishTyping fans a typing change out. Typing is best effort, so a failed
// publish is dropped.
func publishTyping(ctx context.Context, pub realtime.Publisher, logger *zap.Logger, state schema.TypingState) {
	if pub == nil {
		return
	}
	topic := realtime.ConversationTopic(state.ConversationID)
	if err := pub.Publish(ctx, topic, schema.TypingEvent(state)); err != nil {
		logger.Debug("typing update dropped", zap.String("topic", topic), zap.Error(err))
	}
}
