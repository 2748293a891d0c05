package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigpulse/internal/pkg/schema"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newChat() *Chat {
	return &Chat{Conversation: schema.Conversation{ID: "conv-1", ParticipantIDs: []string{"a", "b"}}}
}

func TestPostMessage(t *testing.T) {
	c := newChat()

	m, err := c.PostMessage(schema.Message{ID: "m1", ConversationID: "conv-1", SenderID: "a", Content: "Hello"}, t0.Add(123*time.Nanosecond))
	require.NoError(t, err)
	assert.Equal(t, t0, m.CreatedAt, "truncated to microseconds")
	assert.Equal(t, t0, *c.LastMessageAt)
	assert.Equal(t, t0, c.Conversation.UpdatedAt)

	// a node with a slow clock never goes backwards
	m2, err := c.PostMessage(schema.Message{ID: "m2", ConversationID: "conv-1", SenderID: "b", Content: "Hi"}, t0.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, t0, m2.CreatedAt)
}

func TestPostMessage_Rejections(t *testing.T) {
	c := newChat()

	_, err := c.PostMessage(schema.Message{ConversationID: "conv-1", SenderID: "a", Content: "  \n"}, t0)
	assert.True(t, schema.IsValidation(err))

	_, err = c.PostMessage(schema.Message{ConversationID: "conv-2", SenderID: "a", Content: "x"}, t0)
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, err = c.PostMessage(schema.Message{ConversationID: "conv-1", SenderID: "z", Content: "x"}, t0)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestCountUnread(t *testing.T) {
	msgs := []schema.Message{
		{ID: "1", SenderID: "a", CreatedAt: t0},
		{ID: "2", SenderID: "b", CreatedAt: t0.Add(time.Second)},
		{ID: "3", SenderID: "a", CreatedAt: t0.Add(2 * time.Second)},
	}

	assert.Equal(t, 2, CountUnread(msgs, schema.ParticipantReadMarker{UserID: "b"}))

	read := t0
	assert.Equal(t, 1, CountUnread(msgs, schema.ParticipantReadMarker{UserID: "b", LastReadAt: &read}), "equal timestamp counts as read")

	read = t0.Add(2 * time.Second)
	assert.Zero(t, CountUnread(msgs, schema.ParticipantReadMarker{UserID: "b", LastReadAt: &read}))
	assert.Zero(t, CountUnread(nil, schema.ParticipantReadMarker{UserID: "b"}))
}

func TestReadAt(t *testing.T) {
	assert.Equal(t, t0, ReadAt(t0, nil))
	later := t0.Add(time.Minute)
	assert.Equal(t, later, ReadAt(t0, &later))
}

func TestTyping(t *testing.T) {
	conv := schema.Conversation{ID: "conv-1"}

	StartTyping(&conv, "a", t0)
	assert.True(t, TypingStale(conv, "a", t0))
	assert.False(t, TypingStale(conv, "a", t0.Add(-time.Second)))
	assert.False(t, TypingStale(conv, "b", t0.Add(time.Hour)))

	// one typer at a time
	StartTyping(&conv, "b", t0.Add(time.Second))
	assert.Equal(t, "b", *conv.TypingUserID)
	assert.False(t, StopTyping(&conv, "a"))
	assert.True(t, StopTyping(&conv, "b"))
	assert.Nil(t, conv.TypingUserID)
	assert.Nil(t, conv.TypingStartedAt)
}

func TestUniqueParticipants(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueParticipants([]string{"a", "", "b", "a"}))
}
