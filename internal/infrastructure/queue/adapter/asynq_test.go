package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigpulse/internal/infrastructure/queue/port"
)

func TestParseQueueWeights(t *testing.T) {
	got := parseQueueWeights(" critical=6, default=3 ,low, =4, bad=x")
	assert.Equal(t, map[string]int{"critical": 6, "default": 3, "low": 1, "bad": 1}, got)
	assert.Empty(t, parseQueueWeights(""))
}

func TestToAsynqOptions(t *testing.T) {
	assert.Nil(t, toAsynqOptions(nil))

	opts := toAsynqOptions([]port.EnqueueOption{{
		Queue:     port.QueueChat,
		ProcessIn: 10 * time.Second,
		MaxRetry:  3,
	}})
	assert.Len(t, opts, 3)
}

func TestNewAsynqClient_EmptyURL(t *testing.T) {
	_, err := NewAsynqClient("")
	require.Error(t, err)
}

func TestMemoryQueue_Drain(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	var seen []string
	q.Register("a", func(ctx context.Context, task port.Task) error {
		seen = append(seen, "a:"+string(task.Payload))
		_, err := q.Enqueue(ctx, port.Task{Type: "b", Payload: []byte("from-a")})
		return err
	})
	q.Register("b", func(_ context.Context, task port.Task) error {
		seen = append(seen, "b:"+string(task.Payload))
		return nil
	})

	_, err := q.Enqueue(ctx, port.Task{Type: "a", Payload: []byte("1")}, port.EnqueueOption{ProcessIn: time.Hour})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, port.Task{Type: "missing"})
	require.NoError(t, err)

	err = q.Drain(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Equal(t, []string{"a:1", "b:from-a"}, seen)
	assert.Len(t, q.Enqueued("a"), 1)
	assert.Equal(t, time.Hour, q.Enqueued("a")[0].Option.ProcessIn)
}
