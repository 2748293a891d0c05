package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/pubsub/port"
)

// SubjectPrefix namespaces realtime topics on the NATS server.
const SubjectPrefix = "rt."

// NatsOptions configures the NATS connection.
type NatsOptions struct {
	URL           string
	User          string
	Password      string
	Name          string
	ReconnectWait time.Duration
	ConnectTries  int
}

// NatsTransport implements port.Transport over core NATS subjects.
type NatsTransport struct {
	nc     *nats.Conn
	logger *zap.Logger

	mu          sync.Mutex
	onReconnect []func()
}

var tracer = otel.Tracer("gigpulse/pubsub")

// NewNatsTransport connects with retry, the way every service in the fleet dials NATS.
func NewNatsTransport(opts NatsOptions, logger *zap.Logger) (*NatsTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.URL == "" {
		return nil, errors.New("nats: URL is required")
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.ConnectTries <= 0 {
		opts.ConnectTries = 30
	}

	t := &NatsTransport{logger: logger.Named("nats")}
	natsOpts := []nats.Option{
		nats.Name(opts.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			t.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			t.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
			t.fireReconnect()
		}),
	}
	if opts.User != "" {
		natsOpts = append(natsOpts, nats.UserInfo(opts.User, opts.Password))
	}

	var (
		nc  *nats.Conn
		err error
	)
	for attempt := 1; attempt <= opts.ConnectTries; attempt++ {
		nc, err = nats.Connect(opts.URL, natsOpts...)
		if err == nil {
			break
		}
		t.logger.Info("Waiting for NATS", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(opts.ReconnectWait)
	}
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	t.nc = nc
	t.logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return t, nil
}

var _ port.Transport = (*NatsTransport)(nil)

// Subject maps a topic such as "conversation:abc" onto "rt.conversation.abc".
// Dots inside ids would split NATS tokens, so they are replaced.
func Subject(topic string) string {
	s := strings.ReplaceAll(topic, ".", "_")
	return SubjectPrefix + strings.Replace(s, ":", ".", 1)
}

// Subscribe opens a plain (non-queue-group) subscription: every process that
// holds listeners for the topic needs every event.
func (t *NatsTransport) Subscribe(topic string, h port.Handler) (port.Subscription, error) {
	sub, err := t.nc.Subscribe(Subject(topic), func(msg *nats.Msg) {
		h(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe %s: %w", topic, err)
	}
	return &natsSubscription{sub: sub}, nil
}

// Publish sends data with W3C trace context in the message headers.
func (t *NatsTransport) Publish(ctx context.Context, topic string, data []byte) error {
	return t.PublishSubject(ctx, Subject(topic), data)
}

// PublishSubject publishes to a raw NATS subject outside the realtime namespace.
func (t *NatsTransport) PublishSubject(ctx context.Context, subject string, data []byte) error {
	ctx, span := tracer.Start(ctx, subject+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
			attribute.Int("messaging.message.payload_size_bytes", len(data)),
		),
	)
	defer span.End()

	header := nats.Header{}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
	if err := t.nc.PublishMsg(&nats.Msg{Subject: subject, Data: data, Header: header}); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// OnReconnect registers fn to run from the NATS reconnect handler.
func (t *NatsTransport) OnReconnect(fn func()) {
	t.mu.Lock()
	t.onReconnect = append(t.onReconnect, fn)
	t.mu.Unlock()
}

// Close drains in-flight messages and closes the connection.
func (t *NatsTransport) Close() error {
	if t.nc == nil {
		return nil
	}
	return t.nc.Drain()
}

func (t *NatsTransport) fireReconnect() {
	t.mu.Lock()
	fns := append([]func(){}, t.onReconnect...)
	t.mu.Unlock()
	for _, fn := range fns {
		// Keep the NATS reconnect handler short.
		go fn()
	}
}

type natsSubscription struct {
	once sync.Once
	sub  *nats.Subscription
	err  error
}

func (s *natsSubscription) Close() error {
	s.once.Do(func() {
		s.err = s.sub.Unsubscribe()
		if errors.Is(s.err, nats.ErrConnectionClosed) || errors.Is(s.err, nats.ErrBadSubscription) {
			s.err = nil
		}
	})
	return s.err
}
