package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	mailport "gigpulse/internal/infrastructure/mail/port"
	qport "gigpulse/internal/infrastructure/queue/port"
)

// SendEmailTaskType is the queue task name for delivering a notification email.
const SendEmailTaskType = "notification:send_email"

// SendEmailTaskPayload is the JSON payload transported via the queue.
type SendEmailTaskPayload struct {
	NotificationID string `json:"notificationId"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html"`
}

// EnqueueSendEmail queues p on the notifications queue and returns the task id.
func EnqueueSendEmail(ctx context.Context, client qport.Client, p SendEmailTaskPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode task payload: %w", err)
	}
	return client.Enqueue(ctx, qport.Task{Type: SendEmailTaskType, Payload: b},
		qport.EnqueueOption{Queue: qport.QueueNotifications, MaxRetry: 5})
}

// RegisterSendEmailTask binds the email handler to the provided server.
// Provider failures are returned so the queue retries them.
func RegisterSendEmailTask(srv qport.Server, mailer mailport.Mailer, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("email")

	srv.Register(SendEmailTaskType, func(ctx context.Context, t qport.Task) error {
		var p SendEmailTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", qport.ErrSkipRetry, err)
		}
		if p.To == "" {
			return fmt.Errorf("%w: email task %s has no recipient", qport.ErrSkipRetry, p.NotificationID)
		}

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := mailer.Send(ctx, mailport.Email{To: p.To, Subject: p.Subject, HTML: p.HTML}); err != nil {
			logger.Warn("email delivery failed",
				zap.String("notification_id", p.NotificationID),
				zap.Error(err))
			return err
		}
		logger.Debug("email delivered", zap.String("notification_id", p.NotificationID))
		return nil
	})
}
