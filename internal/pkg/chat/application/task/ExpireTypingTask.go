package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	qport "gigpulse/internal/infrastructure/queue/port"
	"gigpulse/internal/pkg/chat/application/usecase"
)

// ExpireTypingTaskType sweeps a typing indicator once its TTL has passed.
const ExpireTypingTaskType = "chat:expire_typing"

type ExpireTypingTaskPayload struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	StartedAt      time.Time `json:"startedAt"`
}

// TypingExpiryScheduler enqueues a delayed expire task for every typing start.
type TypingExpiryScheduler struct {
	Client qport.Client
	TTL    time.Duration
}

var _ usecase.TypingExpiryScheduler = (*TypingExpiryScheduler)(nil)

// NewTypingExpiryScheduler returns nil when ttl disables the sweep.
func NewTypingExpiryScheduler(client qport.Client, ttl time.Duration) *TypingExpiryScheduler {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &TypingExpiryScheduler{Client: client, TTL: ttl}
}

func (s *TypingExpiryScheduler) ScheduleTypingExpiry(ctx context.Context, conversationID, userID string, startedAt time.Time) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(ExpireTypingTaskPayload{ConversationID: conversationID, UserID: userID, StartedAt: startedAt})
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}
	_, err = s.Client.Enqueue(ctx, qport.Task{Type: ExpireTypingTaskType, Payload: b},
		qport.EnqueueOption{Queue: qport.QueueChat, ProcessAt: startedAt.Add(s.TTL), MaxRetry: 3})
	return err
}

// RegisterExpireTypingTask binds the sweep handler.
func RegisterExpireTypingTask(srv qport.Server, uc *usecase.ExpireTypingUseCase) {
	srv.Register(ExpireTypingTaskType, func(ctx context.Context, t qport.Task) error {
		var p ExpireTypingTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.ExpireTypingInput{ConversationID: p.ConversationID, UserID: p.UserID})
		return retryable(err)
	})
}
