package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gigpulse/internal/pkg/schema"
)

// Domain-level errors for chat behaviours.
var (
	ErrInvalidConversation = errors.New("chat: conversation/message mismatch")
	ErrNotParticipant      = fmt.Errorf("%w: chat: user is not a participant in the conversation", schema.ErrForbidden)
)

// Chat is the aggregate guarding the message log of one conversation. The
// application layer hydrates it with the conversation row and the timestamp of
// the newest persisted message before calling PostMessage.
type Chat struct {
	Conversation  schema.Conversation
	LastMessageAt *time.Time
}

// HasParticipant tells whether userID is part of this chat.
func (c *Chat) HasParticipant(userID string) bool {
	return c != nil && c.Conversation.HasParticipant(userID)
}

// PostMessage validates m and returns it ready to persist.
//
// Rules:
//   - content must not be blank
//   - the conversation ids must match
//   - the sender must be a participant
//
// created_at is set from now, truncated to the store's microsecond precision and
// never earlier than LastMessageAt, so subscribers observe non-decreasing
// timestamps even across clock skew between nodes. Ties are broken by id.
func (c *Chat) PostMessage(m schema.Message, now time.Time) (schema.Message, error) {
	if strings.TrimSpace(m.Content) == "" {
		return schema.Message{}, schema.NewValidationError("content", "must not be empty")
	}
	if m.ConversationID == "" || c.Conversation.ID == "" || m.ConversationID != c.Conversation.ID {
		return schema.Message{}, ErrInvalidConversation
	}
	if !c.HasParticipant(m.SenderID) {
		return schema.Message{}, ErrNotParticipant
	}

	if now.IsZero() {
		now = time.Now()
	}
	ts := now.UTC().Truncate(time.Microsecond)
	if c.LastMessageAt != nil && ts.Before(*c.LastMessageAt) {
		ts = c.LastMessageAt.UTC()
	}

	m.CreatedAt = ts
	m.IsRead = false
	c.LastMessageAt = &ts
	c.Conversation.UpdatedAt = ts
	return m, nil
}
