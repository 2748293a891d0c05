package schema

import (
	"sort"
	"time"
)

// Conversation is a thread between a set of participants. The typing fields are
// ephemeral: they are cleared on send, by the caller, or by the typing sweep.
type Conversation struct {
	ID              string     `json:"id" db:"id"`
	ParticipantIDs  []string   `json:"participant_ids" db:"-"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	TypingUserID    *string    `json:"typing_user_id,omitempty" db:"typing_user_id"`
	TypingStartedAt *time.Time `json:"typing_started_at,omitempty" db:"typing_started_at"`
}

// HasParticipant tells whether userID belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Message is an immutable log entry in a conversation.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	SenderID       string    `json:"sender_id" db:"sender_id"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	IsRead         bool      `json:"is_read" db:"is_read"`
}

// MessageLess orders by created_at, then id.
func MessageLess(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortMessages sorts msgs in place, ascending or descending.
func SortMessages(msgs []Message, ascending bool) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if ascending {
			return MessageLess(msgs[i], msgs[j])
		}
		return MessageLess(msgs[j], msgs[i])
	})
}

// ParticipantReadMarker is the point up to which a user has read a conversation.
// A nil LastReadAt means the user never opened it.
type ParticipantReadMarker struct {
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty" db:"last_read_at"`
}

// TypingState is the payload of a typing event.
type TypingState struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	IsTyping       bool      `json:"is_typing"`
	At             time.Time `json:"at"`
}
