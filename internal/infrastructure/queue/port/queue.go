package port

import (
	"context"
	"errors"
	"time"
)

// ErrSkipRetry marks a handler error as permanent. Wrap it to stop retries of
// a task that can never succeed, such as one with a malformed payload.
var ErrSkipRetry = errors.New("queue: skip retry")

// Task is a background job: a stable type identifier plus an opaque payload.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error asks the backend to retry.
// Handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behaviour. Zero values mean "unspecified".
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before processing
	ProcessAt time.Time     // absolute schedule time, wins over ProcessIn
	MaxRetry  int
	UniqueTTL time.Duration
	Retention time.Duration
	Deadline  time.Time
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs workers. Run blocks until ctx is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Queue names shared by producers and the worker.
const (
	QueueDefault       = "default"
	QueueChat          = "chat"
	QueueNotifications = "notifications"
)
