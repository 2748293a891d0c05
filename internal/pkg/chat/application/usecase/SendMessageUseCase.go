package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// SendMessageInput carries the data needed to send a new message.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
}

// MessageObserver is told about every stored message after its fan-out.
type MessageObserver interface {
	MessageSent(ctx context.Context, conv schema.Conversation, m schema.Message)
}

// SendMessageUseCase is the only write path for messages.
type SendMessageUseCase struct {
	Repo      repository.ChatRepository
	Publisher realtime.Publisher
	Observers []MessageObserver
	Logger    *zap.Logger
	Now       func() time.Time

	// sends serializes the read-stamp-store-publish path per conversation so
	// local subscribers see non-decreasing created_at.
	sends keyedMutex
}

func NewSendMessageUseCase(repo repository.ChatRepository, pub realtime.Publisher, logger *zap.Logger) *SendMessageUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendMessageUseCase{Repo: repo, Publisher: pub, Logger: logger}
}

// Execute validates and appends the message, bumps the conversation's
// updated_at and clears the sender's typing indicator, then fans out on the
// conversation topic. A fan-out failure is logged but not returned: the
// message is durable and readers catch up on reload.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*schema.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, schema.NewValidationError("conversation_id", "and sender_id are required")
	}
	if in.Content == "" {
		return nil, schema.NewValidationError("content", "must not be empty")
	}

	unlock := uc.sends.Lock(in.ConversationID)
	released := false
	release := func() {
		if !released {
			released = true
			unlock()
		}
	}
	defer release()

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, persistence(err)
	}
	last, err := uc.Repo.LastMessageAt(ctx, in.ConversationID)
	if err != nil {
		return nil, persistence(err)
	}

	agg := chat.Chat{Conversation: conv, LastMessageAt: last}
	msg, err := agg.PostMessage(schema.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
	}, nowOr(uc.Now))
	if err != nil {
		return nil, err
	}

	msg, updated, err := uc.Repo.SaveMessage(ctx, msg)
	if err != nil {
		return nil, persistence(err)
	}

	topic := realtime.ConversationTopic(in.ConversationID)
	uc.fanout(ctx, topic, schema.MessageEvent(msg))
	uc.fanout(ctx, topic, schema.ConversationEvent(updated))
	if conv.TypingUserID != nil && *conv.TypingUserID == in.SenderID {
		uc.fanout(ctx, topic, schema.TypingEvent(schema.TypingState{
			ConversationID: in.ConversationID,
			UserID:         in.SenderID,
			IsTyping:       false,
			At:             msg.CreatedAt,
		}))
	}
	release()

	for _, o := range uc.Observers {
		o.MessageSent(ctx, updated, msg)
	}
	return &msg, nil
}

func (uc *SendMessageUseCase) fanout(ctx context.Context, topic string, ev schema.Event) {
	if uc.Publisher == nil {
		return
	}
	if err := uc.Publisher.Publish(ctx, topic, ev); err != nil {
		var te *schema.TransportError
		level := zap.ErrorLevel
		if errors.As(err, &te) {
			level = zap.WarnLevel
		}
		uc.Logger.Log(level, "message fan-out failed",
			zap.String("topic", topic),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}
