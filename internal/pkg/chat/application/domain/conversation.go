package chat

import (
	"time"

	"gigpulse/internal/pkg/schema"
)

// TypingStale reports whether conv still shows userID as typing with a start
// time at or before cutoff. The typing sweep only clears such indicators, so a
// newer keystroke always wins over an older expiry.
func TypingStale(conv schema.Conversation, userID string, cutoff time.Time) bool {
	if conv.TypingUserID == nil || *conv.TypingUserID != userID {
		return false
	}
	return conv.TypingStartedAt != nil && !conv.TypingStartedAt.After(cutoff)
}

// StartTyping makes userID the single active typer of conv.
func StartTyping(conv *schema.Conversation, userID string, at time.Time) {
	uid := userID
	ts := at.UTC().Truncate(time.Microsecond)
	conv.TypingUserID = &uid
	conv.TypingStartedAt = &ts
}

// StopTyping clears the indicator if userID holds it and reports whether it did.
func StopTyping(conv *schema.Conversation, userID string) bool {
	if conv.TypingUserID == nil || *conv.TypingUserID != userID {
		return false
	}
	conv.TypingUserID = nil
	conv.TypingStartedAt = nil
	return true
}
