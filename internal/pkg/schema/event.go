package schema

import (
	"encoding/json"
	"fmt"
)

// EventKind tags the payload carried by an Event.
type EventKind string

const (
	EventMessage       EventKind = "message"
	EventConversation  EventKind = "conversation"
	EventTyping        EventKind = "typing"
	EventNotification  EventKind = "notification"
	EventPresenceState EventKind = "presence_state"
	EventPresenceSync  EventKind = "presence_sync"

	// EventResubscribed is produced locally by the registry after a reconnect,
	// never sent over the transport.
	EventResubscribed EventKind = "resubscribed"
)

// Event is the realtime envelope. Exactly one payload field is set, matching Kind.
type Event struct {
	Kind         EventKind      `json:"kind"`
	Topic        string         `json:"topic"`
	Message      *Message       `json:"message,omitempty"`
	Conversation *Conversation  `json:"conversation,omitempty"`
	Typing       *TypingState   `json:"typing,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	Presence     *UserPresence  `json:"presence,omitempty"`
	Snapshot     []UserPresence `json:"snapshot"`
}

// MessageEvent wraps a new message.
func MessageEvent(m Message) Event { return Event{Kind: EventMessage, Message: &m} }

// ConversationEvent wraps an updated conversation row.
func ConversationEvent(c Conversation) Event { return Event{Kind: EventConversation, Conversation: &c} }

// TypingEvent wraps a typing change.
func TypingEvent(t TypingState) Event { return Event{Kind: EventTyping, Typing: &t} }

// NotificationEvent wraps a new notification.
func NotificationEvent(n Notification) Event { return Event{Kind: EventNotification, Notification: &n} }

// PresenceStateEvent wraps one user's presence change.
func PresenceStateEvent(p UserPresence) Event { return Event{Kind: EventPresenceState, Presence: &p} }

// PresenceSyncEvent wraps a full presence snapshot.
func PresenceSyncEvent(snapshot []UserPresence) Event {
	if snapshot == nil {
		snapshot = []UserPresence{}
	}
	return Event{Kind: EventPresenceSync, Snapshot: snapshot}
}

// EncodeEvent validates and serializes e for the transport.
func EncodeEvent(e Event) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeEvent parses transport bytes into a typed Event.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (e Event) validate() error {
	var ok bool
	switch e.Kind {
	case EventMessage:
		ok = e.Message != nil
	case EventConversation:
		ok = e.Conversation != nil
	case EventTyping:
		ok = e.Typing != nil
	case EventNotification:
		ok = e.Notification != nil
	case EventPresenceState:
		ok = e.Presence != nil
	case EventPresenceSync:
		ok = e.Snapshot != nil
	case EventResubscribed:
		return fmt.Errorf("event kind %q is local only", e.Kind)
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if !ok {
		return fmt.Errorf("event %q: missing payload", e.Kind)
	}
	return nil
}
