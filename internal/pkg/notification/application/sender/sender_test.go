package sender

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	queue "gigpulse/internal/infrastructure/queue/adapter"
	"gigpulse/internal/infrastructure/realtime"
	"gigpulse/internal/pkg/notification/application/task"
	"gigpulse/internal/pkg/notification/application/usecase"
	"gigpulse/internal/pkg/notification/persistence/repository/adapter"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []schema.Event
}

func (p *capturePublisher) Publish(_ context.Context, topic string, ev schema.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ev)
	return nil
}

type subjectRecorder struct {
	mu      sync.Mutex
	fail    map[string]bool // token -> fail
	subject []string
	msgs    []PushMessage
}

func (r *subjectRecorder) PublishSubject(_ context.Context, subject string, data []byte) error {
	var m PushMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[m.Token] {
		return errors.New("nats: connection closed")
	}
	r.subject = append(r.subject, subject)
	r.msgs = append(r.msgs, m)
	return nil
}

var note = schema.Notification{
	ID: "n1", UserID: "u1", Title: "Approved", Body: "Fix sink is live",
	Type: schema.NotificationTypeGigApproved, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	Data: map[string]string{"gig_title": "Fix sink"},
}

func TestAppSender(t *testing.T) {
	pub := &capturePublisher{}
	s := NewAppSender(pub)
	require.NoError(t, s.Send(context.Background(), usecase.Delivery{Notification: note}))

	require.Len(t, pub.events, 1)
	assert.Equal(t, realtime.UserNotificationsTopic("u1"), pub.topics[0])
	assert.Equal(t, schema.EventNotification, pub.events[0].Kind)
	assert.Equal(t, "n1", pub.events[0].Notification.ID)
}

func TestPushSender(t *testing.T) {
	tokens := adapter.NewMemoryDeviceTokenRepository()
	ctx := context.Background()
	require.NoError(t, tokens.Register(ctx, schema.DeviceToken{UserID: "u1", Token: "tok-a"}))
	require.NoError(t, tokens.Register(ctx, schema.DeviceToken{UserID: "u1", Token: "tok-b"}))

	rec := &subjectRecorder{fail: map[string]bool{"tok-a": true}}
	s := NewPushSender(tokens, rec, zaptest.NewLogger(t))

	err := s.Send(ctx, usecase.Delivery{Notification: note})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection closed")

	require.Len(t, rec.msgs, 1, "a failing token does not stop the others")
	assert.Equal(t, PushSubject, rec.subject[0])
	assert.Equal(t, PushMessage{Token: "tok-b", Title: "Approved", Body: "Fix sink is live", Data: note.Data}, rec.msgs[0])

	active, _ := tokens.ListActive(ctx, "u1")
	assert.Len(t, active, 2, "failures deactivate nothing")
}

func TestPushSender_NoTokens(t *testing.T) {
	rec := &subjectRecorder{}
	s := NewPushSender(adapter.NewMemoryDeviceTokenRepository(), rec, zaptest.NewLogger(t))
	assert.NoError(t, s.Send(context.Background(), usecase.Delivery{Notification: note}))
	assert.Empty(t, rec.msgs)
}

func TestEmailSender(t *testing.T) {
	q := queue.NewMemoryQueue()
	profiles := adapter.NewMemoryProfileRepository(repository.Profile{ID: "u1", Email: "maria@example.com"})
	s := NewEmailSender(q, profiles)
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, usecase.Delivery{Notification: note, Payload: map[string]string{"email": "override@example.com"}}))
	require.NoError(t, s.Send(ctx, usecase.Delivery{Notification: note}))

	queued := q.Enqueued(task.SendEmailTaskType)
	require.Len(t, queued, 2)

	var first, second task.SendEmailTaskPayload
	require.NoError(t, json.Unmarshal(queued[0].Task.Payload, &first))
	require.NoError(t, json.Unmarshal(queued[1].Task.Payload, &second))
	assert.Equal(t, "override@example.com", first.To)
	assert.Equal(t, "maria@example.com", second.To)
	assert.Equal(t, "Approved", second.Subject)
	assert.Equal(t, "Fix sink is live", second.HTML)
	assert.Equal(t, "n1", second.NotificationID)

	unknown := note
	unknown.UserID = "ghost"
	assert.ErrorIs(t, s.Send(ctx, usecase.Delivery{Notification: unknown}), ErrNoRecipient)
}

func TestEmailSender_UsesRenderedHTML(t *testing.T) {
	q := queue.NewMemoryQueue()
	s := NewEmailSender(q, nil)
	ctx := context.Background()

	n := note
	n.Title = "Tom & Jerry replied"
	n.Body = "Tom & Jerry\nreplied"
	payload := map[string]string{"email": "maria@example.com"}

	require.NoError(t, s.Send(ctx, usecase.Delivery{Notification: n, Payload: payload, HTML: "<p>Tom &amp; Jerry</p>"}))
	require.NoError(t, s.Send(ctx, usecase.Delivery{Notification: n, Payload: payload}))

	queued := q.Enqueued(task.SendEmailTaskType)
	require.Len(t, queued, 2)
	var rendered, plain task.SendEmailTaskPayload
	require.NoError(t, json.Unmarshal(queued[0].Task.Payload, &rendered))
	require.NoError(t, json.Unmarshal(queued[1].Task.Payload, &plain))

	assert.Equal(t, "<p>Tom &amp; Jerry</p>", rendered.HTML, "rendered HTML is sent as is")
	assert.Equal(t, "Tom & Jerry replied", rendered.Subject, "the subject stays plain text")
	assert.Equal(t, "Tom &amp; Jerry<br>\nreplied", plain.HTML)
}
