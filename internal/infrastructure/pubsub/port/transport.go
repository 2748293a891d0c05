package port

import "context"

// Handler receives raw payloads for one topic. Implementations call it from their
// own delivery goroutine, in the order the broker delivered the messages, and it must not block for long.
type Handler func(data []byte)

// Subscription is an open transport subscription for one topic.
type Subscription interface {
	// Close stops delivery. It is safe to call more than once.
	Close() error
}

// Transport is the pub/sub fabric that carries change events between processes.
// Topic strings are opaque to the transport; adapters map them to their own naming.
type Transport interface {
	Subscribe(topic string, h Handler) (Subscription, error)
	Publish(ctx context.Context, topic string, data []byte) error
	// OnReconnect registers fn to run after the transport recovers from a disconnect.
	OnReconnect(fn func())
}
