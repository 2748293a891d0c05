package usecase

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	notification "gigpulse/internal/pkg/notification/application/domain"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MessageReceivedTrigger is the catalog key dispatched for new chat messages.
const MessageReceivedTrigger = "message_received"

const previewRunes = 80

// Dispatcher hands a dispatch to the pipeline, directly or through the queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, in DispatchInput) error
}

// MessageNotifier dispatches message_received to every participant except
// the sender. It is registered as a chat message observer.
type MessageNotifier struct {
	Dispatcher Dispatcher
	Profiles   repository.ProfileRepository
	Logger     *zap.Logger
}

func NewMessageNotifier(dispatcher Dispatcher, profiles repository.ProfileRepository, logger *zap.Logger) *MessageNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageNotifier{Dispatcher: dispatcher, Profiles: profiles, Logger: logger}
}

// MessageSent logs failures; the message is already stored and must not fail.
func (n *MessageNotifier) MessageSent(ctx context.Context, conv schema.Conversation, m schema.Message) {
	sender := n.displayName(ctx, m.SenderID)
	for _, uid := range conv.ParticipantIDs {
		if uid == m.SenderID {
			continue
		}
		err := n.Dispatcher.Dispatch(ctx, DispatchInput{
			TriggerKey: MessageReceivedTrigger,
			Payload: map[string]string{
				notification.RecipientKey: uid,
				"sender_name":             sender,
				"preview":                 preview(m.Content),
				"conversation_id":         m.ConversationID,
				"message_id":              m.ID,
			},
		})
		if err != nil {
			n.Logger.Warn("message notification failed",
				zap.String("conversation_id", m.ConversationID),
				zap.String("user_id", uid),
				zap.Error(err))
		}
	}
}

func (n *MessageNotifier) displayName(ctx context.Context, userID string) string {
	if n.Profiles == nil {
		return userID
	}
	p, err := n.Profiles.GetProfile(ctx, userID)
	if err != nil || p.FullName == "" {
		return userID
	}
	return p.FullName
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes-1]) + "…"
}
