package chat

import (
	"time"

	"gigpulse/internal/pkg/schema"
)

// Participant captures membership and read state.
// Primary key: (ConversationID, UserID)
type Participant struct {
	ConversationID string     `db:"conversation_id"`
	UserID         string     `db:"user_id"`
	JoinedAt       time.Time  `db:"joined_at"`
	LastReadAt     *time.Time `db:"last_read_at"`
}

// ReadMarker exposes the participant's read position.
func (p Participant) ReadMarker() schema.ParticipantReadMarker {
	return schema.ParticipantReadMarker{ConversationID: p.ConversationID, UserID: p.UserID, LastReadAt: p.LastReadAt}
}

// CountUnread counts the messages userID has not read: messages from other
// senders created strictly after the read marker. A nil marker means nothing
// was read yet.
func CountUnread(msgs []schema.Message, marker schema.ParticipantReadMarker) int {
	n := 0
	for _, m := range msgs {
		if m.SenderID == marker.UserID {
			continue
		}
		if marker.LastReadAt != nil && !m.CreatedAt.After(*marker.LastReadAt) {
			continue
		}
		n++
	}
	return n
}

// ReadAt picks the timestamp a markRead stores: now, but never before the
// newest message, so the unread count drops to zero even under clock skew.
func ReadAt(now time.Time, lastMessageAt *time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if lastMessageAt != nil && ts.Before(*lastMessageAt) {
		return lastMessageAt.UTC()
	}
	return ts
}

// UniqueParticipants drops blanks and duplicates, keeping first-seen order.
func UniqueParticipants(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
