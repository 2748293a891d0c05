package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	mail "gigpulse/internal/infrastructure/mail/adapter"
	queue "gigpulse/internal/infrastructure/queue/adapter"
	qport "gigpulse/internal/infrastructure/queue/port"
	"gigpulse/internal/pkg/notification/application/usecase"
	"gigpulse/internal/pkg/notification/persistence/repository/adapter"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

func TestSendEmailTask(t *testing.T) {
	q := queue.NewMemoryQueue()
	mailer := mail.NewMemoryMailer()
	RegisterSendEmailTask(q, mailer, zaptest.NewLogger(t))

	_, err := EnqueueSendEmail(context.Background(), q, SendEmailTaskPayload{
		NotificationID: "n1", To: "maria@example.com", Subject: "Hi", HTML: "<p>Hi</p>",
	})
	require.NoError(t, err)
	require.Equal(t, qport.QueueNotifications, q.Enqueued(SendEmailTaskType)[0].Option.Queue)
	require.NoError(t, q.Drain(context.Background()))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "maria@example.com", sent[0].To)
	assert.Equal(t, "<p>Hi</p>", sent[0].HTML)
}

func TestSendEmailTask_Errors(t *testing.T) {
	q := queue.NewMemoryQueue()
	mailer := mail.NewMemoryMailer()
	mailer.Err = errors.New("smtp: 421 try later")
	RegisterSendEmailTask(q, mailer, zaptest.NewLogger(t))

	_, err := EnqueueSendEmail(context.Background(), q, SendEmailTaskPayload{NotificationID: "n1", To: "a@b.c"})
	require.NoError(t, err)
	err = q.Drain(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, qport.ErrSkipRetry, "provider failures are retried")

	_, err = q.Enqueue(context.Background(), qport.Task{Type: SendEmailTaskType, Payload: []byte(`{"notificationId":"n2"}`)})
	require.NoError(t, err)
	mailer.Err = nil
	assert.ErrorIs(t, q.Drain(context.Background()), qport.ErrSkipRetry)
}

func TestQueuedDispatch(t *testing.T) {
	q := queue.NewMemoryQueue()
	repo := adapter.NewMemoryNotificationRepository()
	dispatch := usecase.NewDispatchUseCase(repo,
		usecase.NewCachedTemplateResolver(adapter.NewMemoryTemplateRepository(), nil, 0, nil),
		[]schema.Channel{schema.ChannelApp}, zaptest.NewLogger(t))
	dispatch.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	RegisterDispatchTask(q, dispatch)

	d := NewQueuedDispatcher(q)
	require.NoError(t, d.Dispatch(context.Background(), usecase.DispatchInput{
		TriggerKey: "gig_approved",
		Payload:    map[string]string{"user_id": "u1", "gig_title": "Fix sink"},
	}))

	queued := q.Enqueued(DispatchTaskType)
	require.Len(t, queued, 1)
	var p DispatchTaskPayload
	require.NoError(t, json.Unmarshal(queued[0].Task.Payload, &p))
	assert.Equal(t, "gig_approved", p.TriggerKey)

	require.NoError(t, q.Drain(context.Background()))
	ns, err := repo.List(context.Background(), repositoryFilter("u1"))
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Gig approved", ns[0].Title)
}

func TestDispatchTask_ValidationIsFinal(t *testing.T) {
	q := queue.NewMemoryQueue()
	dispatch := usecase.NewDispatchUseCase(adapter.NewMemoryNotificationRepository(),
		usecase.NewCachedTemplateResolver(adapter.NewMemoryTemplateRepository(), nil, 0, nil),
		nil, zaptest.NewLogger(t))
	RegisterDispatchTask(q, dispatch)

	require.NoError(t, NewQueuedDispatcher(q).Dispatch(context.Background(), usecase.DispatchInput{TriggerKey: "gig_approved"}))
	assert.ErrorIs(t, q.Drain(context.Background()), qport.ErrSkipRetry)
}

func repositoryFilter(userID string) repository.NotificationFilter {
	return repository.NotificationFilter{UserID: userID}
}
