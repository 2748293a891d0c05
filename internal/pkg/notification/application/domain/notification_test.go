package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gigpulse/internal/pkg/schema"
)

func TestRender(t *testing.T) {
	out, missing := Render("{{user_name}} received a response to {{gig_title}}", map[string]string{
		"gig_title": "Fix sink",
		"user_name": "Maria",
	})
	assert.Equal(t, "Maria received a response to Fix sink", out)
	assert.Empty(t, missing)
}

func TestRender_MissingVariables(t *testing.T) {
	out, missing := Render("Hi {{ name }}, {{gig}} and {{gig}} again", map[string]string{})
	assert.Equal(t, "Hi ,  and  again", out)
	assert.Equal(t, []string{"gig", "name"}, missing)
}

func TestRenderTemplate(t *testing.T) {
	r := RenderTemplate(schema.NotificationTemplate{
		SubjectOrTitle: "Payment for {{gig_title}}",
		Body:           "You received {{amount}} from {{client}}",
	}, map[string]string{"gig_title": "Paint fence", "amount": "$40"})

	assert.Equal(t, "Payment for Paint fence", r.Title)
	assert.Equal(t, "You received $40 from ", r.Body)
	assert.Equal(t, []string{"client"}, r.Missing)
}

func TestPickTemplate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []schema.NotificationTemplate{
		{ID: "a", IsActive: true, UpdatedAt: t0},
		{ID: "b", IsActive: true, UpdatedAt: t0.Add(time.Hour)},
		{ID: "c", IsActive: false, UpdatedAt: t0.Add(2 * time.Hour)},
	}
	tpl, ok, ambiguous := PickTemplate(rows)
	assert.True(t, ok)
	assert.True(t, ambiguous)
	assert.Equal(t, "b", tpl.ID)

	// equal timestamps resolve the same way regardless of order
	tie := []schema.NotificationTemplate{
		{ID: "y", IsActive: true, UpdatedAt: t0},
		{ID: "x", IsActive: true, UpdatedAt: t0},
	}
	first, _, _ := PickTemplate(tie)
	second, _, _ := PickTemplate([]schema.NotificationTemplate{tie[1], tie[0]})
	assert.Equal(t, first.ID, second.ID)

	_, ok, ambiguous = PickTemplate(rows[2:])
	assert.False(t, ok)
	assert.False(t, ambiguous)
}

func TestFallback(t *testing.T) {
	title, body := Fallback("response_received", map[string]string{
		"user_id":   "u1",
		"user_name": "Maria",
		"gig_title": "Fix sink",
	})
	assert.Equal(t, "Response received", title)
	assert.Equal(t, "gig_title: Fix sink\nuser_name: Maria", body)
}

func TestFallback_NeverEmpty(t *testing.T) {
	title, body := Fallback("", map[string]string{"user_id": "u1"})
	assert.NotEmpty(t, title)
	assert.NotEmpty(t, body)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Provider application submitted", Humanize("provider_application_submitted"))
	assert.Equal(t, "Gig created", Humanize("GIG-created"))
	assert.Equal(t, "", Humanize("__"))
}

func TestCheckPayload(t *testing.T) {
	assert.Empty(t, CheckPayload("gig_approved", map[string]string{"gig_title": "x"}))

	w := CheckPayload("gig_rejected", map[string]string{"gig_title": "x"})
	if assert.Len(t, w, 1) {
		assert.Equal(t, []string{"reason"}, w[0].Missing)
	}

	w = CheckPayload("made_up", nil)
	if assert.Len(t, w, 1) {
		assert.Equal(t, "trigger not in catalog", w[0].Reason)
	}
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, schema.NotificationTypeSystem, TypeFor("system_announcement"))
	assert.Equal(t, schema.NotificationTypeResponseReceived, TypeFor("response_received"))
	assert.Equal(t, schema.NotificationTypeUnknown, TypeFor("made_up"))
}

func TestData(t *testing.T) {
	d := Data(map[string]string{"user_id": "u1", "email": "a@b.c", "gig_title": "x"})
	assert.Equal(t, map[string]string{"user_id": "u1", "gig_title": "x"}, d)
}

func TestEscapeHTML(t *testing.T) {
	out := EscapeHTML(map[string]string{"gig_title": "<b>Fix</b> & paint"})
	assert.Equal(t, "&lt;b&gt;Fix&lt;/b&gt; &amp; paint", out["gig_title"])
}

func TestEmailHTML_EscapesValuesOnce(t *testing.T) {
	payload := map[string]string{"user_name": "Tom & Jerry", "gig_title": "<Fix> sink"}

	markup := &schema.NotificationTemplate{Body: "<p>{{user_name}} on {{gig_title}}</p>"}
	assert.Equal(t, "<p>Tom &amp; Jerry on &lt;Fix&gt; sink</p>", EmailHTML("response_received", markup, payload))

	plain := &schema.NotificationTemplate{Body: "{{user_name}}\non {{gig_title}}"}
	assert.Equal(t, "Tom &amp; Jerry<br>\non &lt;Fix&gt; sink", EmailHTML("response_received", plain, payload))

	fallback := EmailHTML("response_received", nil, payload)
	assert.Contains(t, fallback, "&lt;Fix&gt; sink")
	assert.NotContains(t, fallback, "&amp;amp;")
	assert.NotContains(t, fallback, "&amp;lt;")
}

func TestTextToHTML(t *testing.T) {
	assert.Equal(t, "a: 1<br>\nb: Tom &amp; Jerry", TextToHTML("a: 1\nb: Tom & Jerry"))
}
