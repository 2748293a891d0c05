package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	qport "gigpulse/internal/infrastructure/queue/port"
	chat "gigpulse/internal/pkg/chat/application/domain"
	"gigpulse/internal/pkg/chat/application/usecase"
	"gigpulse/internal/pkg/schema"
)

// SendMessageTaskType is the queue task name for sending a message within the chat domain.
const SendMessageTaskType = "chat:send_message"

// SendMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type SendMessageTaskPayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
}

// EnqueueSendMessage queues p on the chat queue and returns the task id.
func EnqueueSendMessage(ctx context.Context, client qport.Client, p SendMessageTaskPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode task payload: %w", err)
	}
	return client.Enqueue(ctx, qport.Task{Type: SendMessageTaskType, Payload: b},
		qport.EnqueueOption{Queue: qport.QueueChat, MaxRetry: 20})
}

// RegisterSendMessageTask binds the task handler to the provided server.
func RegisterSendMessageTask(srv qport.Server, uc *usecase.SendMessageUseCase) {
	srv.Register(SendMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p SendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
		}

		// bound each task execution against the store
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.SendMessageInput{
			ConversationID: p.ConversationID,
			SenderID:       p.SenderID,
			Content:        p.Content,
		})
		return retryable(err)
	})
}

// retryable keeps persistence failures retryable and marks caller mistakes as final.
func retryable(err error) error {
	if err == nil || errors.Is(err, usecase.ErrPersistence) {
		return err
	}
	if schema.IsValidation(err) || errors.Is(err, chat.ErrNotParticipant) || errors.Is(err, schema.ErrNotFound) {
		return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
	}
	return err
}
