package adapter

import (
	"context"
	"errors"
	"sync"

	"gigpulse/internal/infrastructure/pubsub/port"
)

// ErrDisconnected is returned by MemoryTransport while it simulates an outage.
var ErrDisconnected = errors.New("memory transport: disconnected")

// MemoryTransport is an in-process transport for single-node deployments and tests.
// Publish delivers synchronously to every live subscription, in call order.
type MemoryTransport struct {
	mu          sync.RWMutex
	subs        map[string]map[*memorySubscription]struct{}
	down        bool
	onReconnect []func()
}

// NewMemoryTransport builds an empty, connected transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{subs: make(map[string]map[*memorySubscription]struct{})}
}

var _ port.Transport = (*MemoryTransport)(nil)

func (t *MemoryTransport) Subscribe(topic string, h port.Handler) (port.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.down {
		return nil, ErrDisconnected
	}
	s := &memorySubscription{t: t, topic: topic, h: h}
	if t.subs[topic] == nil {
		t.subs[topic] = make(map[*memorySubscription]struct{})
	}
	t.subs[topic][s] = struct{}{}
	return s, nil
}

func (t *MemoryTransport) Publish(_ context.Context, topic string, data []byte) error {
	t.mu.RLock()
	if t.down {
		t.mu.RUnlock()
		return ErrDisconnected
	}
	targets := make([]*memorySubscription, 0, len(t.subs[topic]))
	for s := range t.subs[topic] {
		targets = append(targets, s)
	}
	t.mu.RUnlock()

	for _, s := range targets {
		payload := append([]byte(nil), data...)
		s.h(payload)
	}
	return nil
}

func (t *MemoryTransport) OnReconnect(fn func()) {
	t.mu.Lock()
	t.onReconnect = append(t.onReconnect, fn)
	t.mu.Unlock()
}

// Subscribers returns the number of open subscriptions on topic.
func (t *MemoryTransport) Subscribers(topic string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs[topic])
}

// Disconnect simulates an outage: all subscriptions are lost and publishes fail.
func (t *MemoryTransport) Disconnect() {
	t.mu.Lock()
	t.down = true
	t.subs = make(map[string]map[*memorySubscription]struct{})
	t.mu.Unlock()
}

// Reconnect ends the outage and runs the reconnect callbacks synchronously.
func (t *MemoryTransport) Reconnect() {
	t.mu.Lock()
	t.down = false
	fns := append([]func(){}, t.onReconnect...)
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type memorySubscription struct {
	t     *MemoryTransport
	topic string
	h     port.Handler
}

func (s *memorySubscription) Close() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if set, ok := s.t.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.t.subs, s.topic)
		}
	}
	return nil
}
