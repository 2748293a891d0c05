package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gigpulse/internal/infrastructure/queue/port"
)

// EnqueuedTask is a task captured by MemoryQueue.
type EnqueuedTask struct {
	ID     string
	Task   port.Task
	Option port.EnqueueOption
}

// MemoryQueue is an in-process port.Client and port.Server for tests. Enqueued
// tasks are recorded and only run when Drain is called.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []EnqueuedTask
	history  []EnqueuedTask
	handlers map[string]port.Handler
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{handlers: make(map[string]port.Handler)}
}

var (
	_ port.Client = (*MemoryQueue)(nil)
	_ port.Server = (*MemoryQueue)(nil)
)

func (m *MemoryQueue) Enqueue(_ context.Context, t port.Task, opts ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("memory queue: task type is required")
	}
	et := EnqueuedTask{ID: uuid.NewString(), Task: port.Task{Type: t.Type, Payload: append([]byte(nil), t.Payload...)}}
	if len(opts) > 0 {
		et.Option = opts[0]
	}
	m.mu.Lock()
	m.pending = append(m.pending, et)
	m.history = append(m.history, et)
	m.mu.Unlock()
	return et.ID, nil
}

func (m *MemoryQueue) Register(taskType string, h port.Handler) {
	m.mu.Lock()
	m.handlers[taskType] = h
	m.mu.Unlock()
}

// Drain runs every pending task once, in enqueue order, ignoring delays.
// Tasks enqueued by handlers are run in the same call.
func (m *MemoryQueue) Drain(ctx context.Context) error {
	var errs []error
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return errors.Join(errs...)
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		h := m.handlers[next.Task.Type]
		m.mu.Unlock()

		if h == nil {
			errs = append(errs, fmt.Errorf("memory queue: no handler for %q", next.Task.Type))
			continue
		}
		if err := h(ctx, next.Task); err != nil {
			errs = append(errs, err)
		}
	}
}

// Enqueued returns every task ever enqueued, optionally filtered by type.
func (m *MemoryQueue) Enqueued(taskType string) []EnqueuedTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EnqueuedTask
	for _, t := range m.history {
		if taskType == "" || t.Task.Type == taskType {
			out = append(out, t)
		}
	}
	return out
}

func (m *MemoryQueue) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (m *MemoryQueue) Stop(context.Context) error { return nil }
func (m *MemoryQueue) Close() error               { return nil }
