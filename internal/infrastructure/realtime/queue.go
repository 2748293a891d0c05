package realtime

import (
	"sync"

	"gigpulse/internal/pkg/schema"
)

// eventQueue is an unbounded FIFO between the transport callback and a topic worker,
// so a slow listener never blocks the transport's delivery goroutine.
type eventQueue struct {
	mu     sync.Mutex
	items  []schema.Event
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev schema.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []schema.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
