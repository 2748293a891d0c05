package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	qport "gigpulse/internal/infrastructure/queue/port"
	"gigpulse/internal/pkg/notification/application/usecase"
	"gigpulse/internal/pkg/schema"
)

// DispatchTaskType is the queue task name for running the dispatch pipeline.
const DispatchTaskType = "notification:dispatch"

// DispatchTaskPayload is the JSON payload transported via the queue.
type DispatchTaskPayload struct {
	TriggerKey string            `json:"triggerKey"`
	Payload    map[string]string `json:"payload"`
}

// QueuedDispatcher runs dispatches on the worker instead of the caller's goroutine.
type QueuedDispatcher struct {
	Client qport.Client
}

func NewQueuedDispatcher(client qport.Client) *QueuedDispatcher {
	return &QueuedDispatcher{Client: client}
}

var _ usecase.Dispatcher = (*QueuedDispatcher)(nil)

func (d *QueuedDispatcher) Dispatch(ctx context.Context, in usecase.DispatchInput) error {
	b, err := json.Marshal(DispatchTaskPayload{TriggerKey: in.TriggerKey, Payload: in.Payload})
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}
	_, err = d.Client.Enqueue(ctx, qport.Task{Type: DispatchTaskType, Payload: b},
		qport.EnqueueOption{Queue: qport.QueueNotifications, MaxRetry: 10})
	return err
}

// RegisterDispatchTask binds the dispatch handler to the provided server.
// Only store failures are retried; delivery failures were already logged.
func RegisterDispatchTask(srv qport.Server, uc *usecase.DispatchUseCase) {
	srv.Register(DispatchTaskType, func(ctx context.Context, t qport.Task) error {
		var p DispatchTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
		}

		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.DispatchInput{TriggerKey: p.TriggerKey, Payload: p.Payload})
		if schema.IsValidation(err) {
			return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
		}
		return err
	})
}
