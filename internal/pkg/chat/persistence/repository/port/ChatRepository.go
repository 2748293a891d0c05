package repository

import (
	"context"
	"time"

	"gigpulse/internal/pkg/schema"
)

// ChatRepository defines persistence operations for the chat domain.
// Missing conversations or memberships are reported as schema.ErrNotFound.
type ChatRepository interface {
	// CreateConversation inserts the conversation and its participants.
	CreateConversation(ctx context.Context, c schema.Conversation) error
	AddParticipant(ctx context.Context, conversationID string, userID string) error
	GetConversation(ctx context.Context, conversationID string) (schema.Conversation, error)
	// ListConversationsByUser returns the user's conversations, most recently updated first.
	ListConversationsByUser(ctx context.Context, userID string) ([]schema.Conversation, error)
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)

	// SaveMessage appends m, sets the conversation's updated_at to m.CreatedAt and
	// clears the typing indicator if the sender holds it, atomically. Appends to
	// one conversation are serialized and m.CreatedAt is raised to the newest
	// stored message if it is older. It returns the stored message and the
	// updated conversation.
	SaveMessage(ctx context.Context, m schema.Message) (schema.Message, schema.Conversation, error)
	LastMessageAt(ctx context.Context, conversationID string) (*time.Time, error)
	ListMessages(ctx context.Context, conversationID string, ascending bool) ([]schema.Message, error)
	// ListMessagesSince returns messages created strictly after since, or all of them for nil.
	ListMessagesSince(ctx context.Context, conversationID string, since *time.Time) ([]schema.Message, error)

	GetReadMarker(ctx context.Context, conversationID string, userID string) (schema.ParticipantReadMarker, error)
	// SetReadMarker stores at as the user's last_read_at and flags messages from
	// other senders up to at as read.
	SetReadMarker(ctx context.Context, conversationID string, userID string, at time.Time) error

	StartTyping(ctx context.Context, conversationID string, userID string, at time.Time) (schema.Conversation, error)
	// StopTyping clears the indicator only if userID holds it.
	StopTyping(ctx context.Context, conversationID string, userID string) (schema.Conversation, bool, error)
	// ExpireTyping clears the indicator only if userID holds it and started at or before cutoff.
	ExpireTyping(ctx context.Context, conversationID string, userID string, cutoff time.Time) (schema.Conversation, bool, error)
}
