// Package sender holds the per-channel delivery paths of the dispatch pipeline.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	qport "gigpulse/internal/infrastructure/queue/port"
	"gigpulse/internal/infrastructure/realtime"
	notification "gigpulse/internal/pkg/notification/application/domain"
	"gigpulse/internal/pkg/notification/application/task"
	"gigpulse/internal/pkg/notification/application/usecase"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// PushSubject is the NATS subject the push gateway consumes.
const PushSubject = "notifications.push"

// ErrNoRecipient is returned when a channel has nowhere to deliver to.
var ErrNoRecipient = errors.New("sender: no recipient")

// AppSender delivers in-app notifications on the user's realtime topic.
type AppSender struct {
	Publisher realtime.Publisher
}

func NewAppSender(pub realtime.Publisher) *AppSender {
	return &AppSender{Publisher: pub}
}

var (
	_ usecase.ChannelSender = (*AppSender)(nil)
	_ usecase.ChannelSender = (*PushSender)(nil)
	_ usecase.ChannelSender = (*EmailSender)(nil)
)

func (s *AppSender) Channel() schema.Channel { return schema.ChannelApp }

func (s *AppSender) Send(ctx context.Context, d usecase.Delivery) error {
	n := d.Notification
	return s.Publisher.Publish(ctx, realtime.UserNotificationsTopic(n.UserID), schema.NotificationEvent(n))
}

// SubjectPublisher publishes raw bytes on a transport subject.
type SubjectPublisher interface {
	PublishSubject(ctx context.Context, subject string, data []byte) error
}

// PushMessage is what the push gateway accepts, one per device token.
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushSender fans a notification out to every active device token of the user.
type PushSender struct {
	Tokens    repository.DeviceTokenRepository
	Publisher SubjectPublisher
	Logger    *zap.Logger
}

func NewPushSender(tokens repository.DeviceTokenRepository, pub SubjectPublisher, logger *zap.Logger) *PushSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushSender{Tokens: tokens, Publisher: pub, Logger: logger.Named("push")}
}

func (s *PushSender) Channel() schema.Channel { return schema.ChannelPush }

// Send publishes one message per token. A failed token does not stop the
// others; the failures come back joined.
func (s *PushSender) Send(ctx context.Context, d usecase.Delivery) error {
	n := d.Notification
	tokens, err := s.Tokens.ListActive(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("list device tokens: %w", err)
	}
	if len(tokens) == 0 {
		s.Logger.Debug("no active device token", zap.String("user_id", n.UserID))
		return nil
	}

	var errs []error
	for _, t := range tokens {
		b, err := json.Marshal(PushMessage{Token: t.Token, Title: n.Title, Body: n.Body, Data: n.Data})
		if err != nil {
			return err
		}
		if err := s.Publisher.PublishSubject(ctx, PushSubject, b); err != nil {
			errs = append(errs, fmt.Errorf("token %s: %w", truncate(t.Token, 8), err))
		}
	}
	return errors.Join(errs...)
}

// EmailSender queues the email for the background worker.
type EmailSender struct {
	Queue    qport.Client
	Profiles repository.ProfileRepository
}

func NewEmailSender(client qport.Client, profiles repository.ProfileRepository) *EmailSender {
	return &EmailSender{Queue: client, Profiles: profiles}
}

func (s *EmailSender) Channel() schema.Channel { return schema.ChannelEmail }

// Send resolves the address from the payload's email key, then from the
// user's profile. Without a rendered HTML body the plain-text body is escaped.
func (s *EmailSender) Send(ctx context.Context, d usecase.Delivery) error {
	n := d.Notification
	to := strings.TrimSpace(d.Payload[notification.EmailKey])
	if to == "" && s.Profiles != nil {
		p, err := s.Profiles.GetProfile(ctx, n.UserID)
		switch {
		case errors.Is(err, schema.ErrNotFound):
		case err != nil:
			return fmt.Errorf("load profile: %w", err)
		default:
			to = strings.TrimSpace(p.Email)
		}
	}
	if to == "" {
		return fmt.Errorf("%w: user %s has no email address", ErrNoRecipient, n.UserID)
	}

	body := d.HTML
	if body == "" {
		body = notification.TextToHTML(n.Body)
	}
	_, err := task.EnqueueSendEmail(ctx, s.Queue, task.SendEmailTaskPayload{
		NotificationID: n.ID,
		To:             to,
		Subject:        n.Title,
		HTML:           body,
	})
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
