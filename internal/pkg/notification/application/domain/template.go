package notification

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"gigpulse/internal/pkg/schema"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Render substitutes every {{variable}} in text from payload. Variables the
// payload lacks become "" and are returned, sorted and deduplicated.
func Render(text string, payload map[string]string) (string, []string) {
	missing := map[string]struct{}{}
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := payload[name]
		if !ok {
			missing[name] = struct{}{}
		}
		return v
	})
	return out, sortedKeys(missing)
}

// Rendered is a template filled in for one payload.
type Rendered struct {
	Title   string
	Body    string
	Missing []string
}

// RenderTemplate fills the title and body of tpl.
func RenderTemplate(tpl schema.NotificationTemplate, payload map[string]string) Rendered {
	title, missTitle := Render(tpl.SubjectOrTitle, payload)
	body, missBody := Render(tpl.Body, payload)

	seen := map[string]struct{}{}
	for _, k := range missTitle {
		seen[k] = struct{}{}
	}
	for _, k := range missBody {
		seen[k] = struct{}{}
	}
	return Rendered{Title: title, Body: body, Missing: sortedKeys(seen)}
}

// PickTemplate chooses among the active templates stored for one
// (trigger, channel). The most recently updated wins, then the greatest id.
// ambiguous reports that more than one active row was found.
func PickTemplate(candidates []schema.NotificationTemplate) (tpl schema.NotificationTemplate, ok, ambiguous bool) {
	active := 0
	for _, c := range candidates {
		if !c.IsActive {
			continue
		}
		active++
		if !ok || c.UpdatedAt.After(tpl.UpdatedAt) || (c.UpdatedAt.Equal(tpl.UpdatedAt) && c.ID > tpl.ID) {
			tpl, ok = c, true
		}
	}
	return tpl, ok, active > 1
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EmailHTML renders the email body for a trigger. Payload values are escaped
// exactly once. A template without markup, and the fallback text, are treated
// as plain text: escaped whole with line breaks turned into <br>.
func EmailHTML(triggerKey string, tpl *schema.NotificationTemplate, payload map[string]string) string {
	if tpl == nil {
		_, body := Fallback(triggerKey, payload)
		return TextToHTML(body)
	}
	if !strings.Contains(tpl.Body, "<") {
		body, _ := Render(tpl.Body, payload)
		return TextToHTML(body)
	}
	body, _ := Render(tpl.Body, EscapeHTML(payload))
	return body
}

// TextToHTML escapes plain text and turns its line breaks into <br>.
func TextToHTML(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>\n")
}

// EscapeHTML copies payload with every value HTML-escaped, for templates
// rendered into an email body.
func EscapeHTML(payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = html.EscapeString(v)
	}
	return out
}
