package realtime

import (
	"fmt"
	"strings"
)

// Topic kinds as they appear in websocket frames.
const (
	TopicKindConversation      = "conversation"
	TopicKindUserNotifications = "user-notifications"
	TopicKindPresence          = "presence"
)

// PresenceTopic is the single global presence feed.
const PresenceTopic = TopicKindPresence

// ConversationTopic names the topic for one conversation.
func ConversationTopic(conversationID string) string {
	return TopicKindConversation + ":" + conversationID
}

// UserNotificationsTopic names the notification stream of one user.
func UserNotificationsTopic(userID string) string {
	return TopicKindUserNotifications + ":" + userID
}

// ResolveTopic builds a topic from a kind and id received from a client.
func ResolveTopic(kind, id string) (string, error) {
	kind = strings.TrimSpace(kind)
	id = strings.TrimSpace(id)
	switch kind {
	case TopicKindPresence:
		return PresenceTopic, nil
	case TopicKindConversation:
		if id == "" {
			return "", fmt.Errorf("topic %s requires an id", kind)
		}
		return ConversationTopic(id), nil
	case TopicKindUserNotifications:
		if id == "" {
			return "", fmt.Errorf("topic %s requires an id", kind)
		}
		return UserNotificationsTopic(id), nil
	default:
		return "", fmt.Errorf("unknown topic kind %q", kind)
	}
}

// SplitTopic returns the kind and id of a topic name.
func SplitTopic(topic string) (kind, id string) {
	kind, id, _ = strings.Cut(topic, ":")
	return kind, id
}
