package notification

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Payload keys that route a notification rather than describe it.
const (
	RecipientKey = "user_id"
	EmailKey     = "email"
)

const (
	fallbackTitle = "Notification"
	fallbackBody  = "You have a new notification."
)

// Fallback synthesizes content for a trigger with no active template. The
// title is the humanized trigger key and the body lists the payload as
// sorted "key: value" lines. Neither is ever empty.
func Fallback(triggerKey string, payload map[string]string) (title, body string) {
	title = Humanize(triggerKey)
	if title == "" {
		title = fallbackTitle
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == RecipientKey || k == EmailKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+payload[k])
	}
	body = strings.Join(lines, "\n")
	if strings.TrimSpace(body) == "" {
		body = fallbackBody
	}
	return title, body
}

// Humanize turns "response_received" into "Response received".
func Humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return ""
	}
	s := strings.ToLower(strings.Join(words, " "))
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
