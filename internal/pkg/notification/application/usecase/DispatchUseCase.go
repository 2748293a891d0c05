package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	notification "gigpulse/internal/pkg/notification/application/domain"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// ChannelSender delivers stored notifications over one channel.
type ChannelSender interface {
	Channel() schema.Channel
	Send(ctx context.Context, d Delivery) error
}

// Delivery is one stored notification on its way to a channel.
type Delivery struct {
	Notification schema.Notification
	// Payload is the raw trigger payload.
	Payload map[string]string
	// HTML is the rendered email body; set for the email channel only.
	HTML string
}

type DispatchInput struct {
	TriggerKey string
	// Payload carries the template variables plus user_id, the recipient.
	Payload map[string]string
}

// DispatchUseCase turns a business event into stored notifications, one per
// enabled channel with an active template, and delivers them.
type DispatchUseCase struct {
	Repo      repository.NotificationRepository
	Templates TemplateResolver
	Senders   map[schema.Channel]ChannelSender
	// Channels are the enabled channels in dispatch order.
	Channels []schema.Channel
	Logger   *zap.Logger
	Now      func() time.Time
	NewID    func() string
}

func NewDispatchUseCase(repo repository.NotificationRepository, templates TemplateResolver, channels []schema.Channel, logger *zap.Logger, senders ...ChannelSender) *DispatchUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(channels) == 0 {
		channels = schema.AllChannels
	}
	bySender := make(map[schema.Channel]ChannelSender, len(senders))
	for _, s := range senders {
		bySender[s.Channel()] = s
	}
	return &DispatchUseCase{
		Repo:      repo,
		Templates: templates,
		Senders:   bySender,
		Channels:  channels,
		Logger:    logger,
	}
}

// Execute never drops an event: unknown triggers, missing variables and
// missing templates are logged and produce fallback content. Only a failure to
// store the notifications is returned; channel delivery failures are logged.
func (uc *DispatchUseCase) Execute(ctx context.Context, in DispatchInput) ([]schema.Notification, error) {
	key := strings.TrimSpace(in.TriggerKey)
	if key == "" {
		return nil, schema.NewValidationError("trigger_key", "is required")
	}
	recipient := strings.TrimSpace(in.Payload[notification.RecipientKey])
	if recipient == "" {
		return nil, schema.NewValidationError("payload.user_id", "is required")
	}

	for _, w := range notification.CheckPayload(key, in.Payload) {
		uc.warn(w)
	}

	base := schema.Notification{
		UserID:    recipient,
		Type:      notification.TypeFor(key),
		CreatedAt: nowOr(uc.Now),
		Data:      notification.Data(in.Payload),
	}

	var out []schema.Notification
	htmlBodies := make(map[string]string)
	for _, ch := range uc.Channels {
		tpl, err := uc.Templates.Resolve(ctx, key, ch)
		if err != nil {
			uc.Logger.Warn("template lookup failed, channel skipped",
				zap.String("trigger", key), zap.String("channel", string(ch)), zap.Error(err))
			continue
		}
		if tpl == nil {
			continue
		}

		r := notification.RenderTemplate(*tpl, in.Payload)
		if len(r.Missing) > 0 {
			uc.warn(schema.TemplateResolutionWarning{Trigger: key, Channel: ch, Missing: r.Missing, Reason: "template variables missing from payload"})
		}

		n := base
		n.ID = uc.newID()
		n.Channel = ch
		n.Title, n.Body = r.Title, r.Body
		if strings.TrimSpace(n.Title) == "" {
			n.Title, _ = notification.Fallback(key, in.Payload)
		}
		if ch == schema.ChannelEmail {
			htmlBodies[n.ID] = notification.EmailHTML(key, tpl, in.Payload)
		}
		out = append(out, n)
	}

	if len(out) == 0 {
		ch := uc.fallbackChannel()
		uc.warn(schema.TemplateResolutionWarning{Trigger: key, Channel: ch, Reason: "no active template, using fallback"})
		n := base
		n.ID = uc.newID()
		n.Channel = ch
		n.Title, n.Body = notification.Fallback(key, in.Payload)
		if ch == schema.ChannelEmail {
			htmlBodies[n.ID] = notification.EmailHTML(key, nil, in.Payload)
		}
		out = append(out, n)
	}

	if err := uc.Repo.Insert(ctx, out); err != nil {
		return nil, persistence(err)
	}

	uc.deliver(ctx, out, in.Payload, htmlBodies)
	return out, nil
}

// Dispatch runs Execute and drops the result.
func (uc *DispatchUseCase) Dispatch(ctx context.Context, in DispatchInput) error {
	_, err := uc.Execute(ctx, in)
	return err
}

// deliver sends every notification on its channel concurrently and waits for
// all of them. One channel failing never affects another.
func (uc *DispatchUseCase) deliver(ctx context.Context, ns []schema.Notification, payload map[string]string, htmlBodies map[string]string) {
	var g errgroup.Group
	for _, n := range ns {
		s, ok := uc.Senders[n.Channel]
		if !ok {
			uc.Logger.Debug("no sender for channel", zap.String("channel", string(n.Channel)))
			dispatches.Add(ctx, 1, outcome(n.Channel, "skipped"))
			continue
		}
		g.Go(func() error {
			if err := s.Send(ctx, Delivery{Notification: n, Payload: payload, HTML: htmlBodies[n.ID]}); err != nil {
				derr := &schema.ChannelDeliveryError{Channel: n.Channel, Err: err}
				uc.Logger.Warn("notification delivery failed",
					zap.String("channel", string(n.Channel)),
					zap.String("user_id", n.UserID),
					zap.String("notification_id", n.ID),
					zap.Error(derr))
				dispatches.Add(ctx, 1, outcome(n.Channel, "failed"))
				return nil
			}
			dispatches.Add(ctx, 1, outcome(n.Channel, "delivered"))
			return nil
		})
	}
	_ = g.Wait()
}

// fallbackChannel prefers in-app, the one channel that needs no address.
func (uc *DispatchUseCase) fallbackChannel() schema.Channel {
	for _, ch := range uc.Channels {
		if ch == schema.ChannelApp {
			return ch
		}
	}
	if len(uc.Channels) == 0 {
		return schema.ChannelApp
	}
	return uc.Channels[0]
}

func (uc *DispatchUseCase) warn(w schema.TemplateResolutionWarning) {
	uc.Logger.Warn("template resolution",
		zap.String("trigger", w.Trigger),
		zap.String("channel", string(w.Channel)),
		zap.Strings("missing", w.Missing),
		zap.String("reason", w.Reason))
}

func (uc *DispatchUseCase) newID() string {
	if uc.NewID != nil {
		return uc.NewID()
	}
	return uuid.NewString()
}

func outcome(ch schema.Channel, result string) metric.AddOption {
	return metric.WithAttributes(attribute.String("channel", string(ch)), attribute.String("outcome", result))
}
