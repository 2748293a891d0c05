package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/pubsub/port"
	"gigpulse/internal/pkg/schema"
)

// ErrRegistryClosed is returned by Subscribe after Close.
var ErrRegistryClosed = errors.New("realtime: registry closed")

// Listener receives decoded events for a topic.
type Listener func(ctx context.Context, ev schema.Event)

// Unsubscribe detaches a listener. It is idempotent. Once it returns, the listener is
// not invoked again; an invocation already running is waited for, so it must not be
// called synchronously from inside the listener it removes.
type Unsubscribe func()

// Publisher is the write side of the registry used by the domain use cases.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev schema.Event) error
}

// Subscriber is the read side of the registry.
type Subscriber interface {
	Subscribe(topic string, fn Listener) (Unsubscribe, error)
}

// Registry multiplexes local listeners onto one transport subscription per topic.
// Listeners of one topic see events in transport order; there is no ordering across topics.
type Registry struct {
	transport port.Transport
	logger    *zap.Logger
	fanout    metric.Int64Counter

	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

type topicState struct {
	name string
	reg  *Registry

	// refs counts listeners plus in-progress subscribes. Guarded by Registry.mu.
	refs int

	mu        sync.Mutex
	sub       port.Subscription
	listeners map[uint64]*listenerEntry
	nextID    uint64
	queue     *eventQueue
	done      chan struct{}
	running   bool
}

type listenerEntry struct {
	id     uint64
	fn     Listener
	mu     sync.Mutex
	active bool
}

// NewRegistry builds a registry over transport and wires reconnect handling.
func NewRegistry(transport port.Transport, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	fanout, _ := otel.Meter("gigpulse/realtime").Int64Counter("realtime_fanout_total",
		metric.WithDescription("Events delivered to local listeners"))
	r := &Registry{
		transport: transport,
		logger:    logger.Named("registry"),
		fanout:    fanout,
		topics:    make(map[string]*topicState),
	}
	transport.OnReconnect(r.resubscribeAll)
	return r
}

var (
	_ Publisher  = (*Registry)(nil)
	_ Subscriber = (*Registry)(nil)
)

// Subscribe registers fn on topic. The first listener of a topic opens the transport
// subscription; later listeners share it.
func (r *Registry) Subscribe(topic string, fn Listener) (Unsubscribe, error) {
	if topic == "" || fn == nil {
		return nil, errors.New("realtime: topic and listener are required")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	t := r.topics[topic]
	if t == nil {
		t = &topicState{
			name:      topic,
			reg:       r,
			listeners: make(map[uint64]*listenerEntry),
			queue:     newEventQueue(),
		}
		r.topics[topic] = t
	}
	t.refs++
	r.mu.Unlock()

	t.mu.Lock()
	if t.sub == nil {
		if err := t.openLocked(); err != nil {
			t.mu.Unlock()
			r.release(t, nil)
			return nil, &schema.TransportError{Op: "subscribe " + topic, Err: err}
		}
	}
	t.nextID++
	entry := &listenerEntry{id: t.nextID, fn: fn, active: true}
	t.listeners[entry.id] = entry
	t.mu.Unlock()

	r.logger.Debug("listener attached", zap.String("topic", topic), zap.Uint64("listener", entry.id))

	var once sync.Once
	return func() {
		once.Do(func() { r.release(t, entry) })
	}, nil
}

// Publish stamps ev with topic, encodes it and hands it to the transport.
func (r *Registry) Publish(ctx context.Context, topic string, ev schema.Event) error {
	ev.Topic = topic
	data, err := schema.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := r.transport.Publish(ctx, topic, data); err != nil {
		return &schema.TransportError{Op: "publish " + topic, Err: err}
	}
	return nil
}

// TopicCount returns the number of topics with at least one listener.
func (r *Registry) TopicCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

// ListenerCount returns the number of listeners attached to topic.
func (r *Registry) ListenerCount(topic string) int {
	r.mu.Lock()
	t := r.topics[topic]
	r.mu.Unlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}

// Close tears down every topic. Subsequent Subscribe calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	topics := make([]*topicState, 0, len(r.topics))
	for _, t := range r.topics {
		topics = append(topics, t)
	}
	r.topics = make(map[string]*topicState)
	r.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		sub := t.sub
		t.sub = nil
		t.stopLocked()
		listeners := make([]*listenerEntry, 0, len(t.listeners))
		for _, l := range t.listeners {
			listeners = append(listeners, l)
		}
		t.listeners = make(map[uint64]*listenerEntry)
		t.mu.Unlock()
		if sub != nil {
			_ = sub.Close()
		}
		// An in-flight listener may call back into the registry.
		for _, l := range listeners {
			l.deactivate()
		}
	}
}

// release drops one reference on t, removing entry if given. The reference decrement,
// map removal and subscription teardown happen under t.mu so a concurrent Subscribe on
// the same topic either keeps t alive or builds a fresh topicState.
func (r *Registry) release(t *topicState, entry *listenerEntry) {
	t.mu.Lock()
	if entry != nil {
		delete(t.listeners, entry.id)
	}

	r.mu.Lock()
	t.refs--
	last := t.refs <= 0
	if last && r.topics[t.name] == t {
		delete(r.topics, t.name)
	}
	r.mu.Unlock()

	var sub port.Subscription
	if last {
		sub = t.sub
		t.sub = nil
		t.stopLocked()
	}
	t.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			r.logger.Warn("close transport subscription", zap.String("topic", t.name), zap.Error(err))
		}
		r.logger.Debug("transport subscription closed", zap.String("topic", t.name))
	}
	if entry != nil {
		entry.deactivate()
	}
}

// resubscribeAll reopens the transport subscription of every topic that still has
// listeners and tells those listeners to reconcile. Missed events are not replayed.
func (r *Registry) resubscribeAll() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	topics := make([]*topicState, 0, len(r.topics))
	for _, t := range r.topics {
		topics = append(topics, t)
	}
	r.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		if len(t.listeners) == 0 {
			t.mu.Unlock()
			continue
		}
		if t.sub != nil {
			_ = t.sub.Close()
			t.sub = nil
		}
		err := t.openLocked()
		t.mu.Unlock()
		if err != nil {
			r.logger.Warn("resubscribe failed", zap.String("topic", t.name), zap.Error(err))
			continue
		}
		t.queue.push(schema.Event{Kind: schema.EventResubscribed, Topic: t.name})
	}
	r.logger.Info("resubscribed topics", zap.Int("topics", len(topics)))
}

// openLocked opens the transport subscription and starts the worker. Caller holds t.mu.
func (t *topicState) openLocked() error {
	sub, err := t.reg.transport.Subscribe(t.name, t.receive)
	if err != nil {
		return err
	}
	t.sub = sub
	if !t.running {
		t.done = make(chan struct{})
		t.running = true
		go t.run(t.done)
	}
	return nil
}

// stopLocked stops the worker. Caller holds t.mu.
func (t *topicState) stopLocked() {
	if t.running {
		close(t.done)
		t.running = false
	}
}

// receive runs on the transport's goroutine: decode once, then queue.
func (t *topicState) receive(data []byte) {
	ev, err := schema.DecodeEvent(data)
	if err != nil {
		t.reg.logger.Warn("dropping undecodable event", zap.String("topic", t.name), zap.Error(err))
		return
	}
	if ev.Topic == "" {
		ev.Topic = t.name
	}
	t.queue.push(ev)
}

func (t *topicState) run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.queue.signal:
		}
		for _, ev := range t.queue.drain() {
			select {
			case <-done:
				return
			default:
			}
			t.deliver(ev)
		}
	}
}

// deliver hands ev to every listener and waits for all of them before the next event,
// which keeps per-topic order while letting listeners of one event run concurrently.
func (t *topicState) deliver(ev schema.Event) {
	t.mu.Lock()
	entries := make([]*listenerEntry, 0, len(t.listeners))
	for _, l := range t.listeners {
		entries = append(entries, l)
	}
	t.mu.Unlock()
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	ctx := context.Background()
	if len(entries) == 1 {
		t.invoke(ctx, entries[0], ev)
	} else {
		var wg sync.WaitGroup
		for _, l := range entries {
			wg.Add(1)
			go func(l *listenerEntry) {
				defer wg.Done()
				t.invoke(ctx, l, ev)
			}(l)
		}
		wg.Wait()
	}
	t.reg.fanout.Add(ctx, int64(len(entries)), metric.WithAttributes(
		attribute.String("kind", string(ev.Kind)),
	))
}

func (t *topicState) invoke(ctx context.Context, l *listenerEntry, ev schema.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			t.reg.logger.Error("listener panicked",
				zap.String("topic", t.name),
				zap.Uint64("listener", l.id),
				zap.String("panic", fmt.Sprint(p)))
		}
	}()
	l.fn(ctx, ev)
}

// deactivate waits for an in-flight invocation and blocks later ones.
func (l *listenerEntry) deactivate() {
	l.mu.Lock()
	l.active = false
	l.mu.Unlock()
}
