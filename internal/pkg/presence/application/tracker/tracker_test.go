package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pubsub "gigpulse/internal/infrastructure/pubsub/adapter"
	"gigpulse/internal/infrastructure/realtime"
	"gigpulse/internal/pkg/presence/persistence/repository/adapter"
	"gigpulse/internal/pkg/schema"
)

type fixture struct {
	tracker   *Tracker
	repo      *adapter.MemoryPresenceRepository
	registry  *realtime.Registry
	transport *pubsub.MemoryTransport
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	transport := pubsub.NewMemoryTransport()
	registry := realtime.NewRegistry(transport, zap.NewNop())
	repo := adapter.NewMemoryPresenceRepository()
	tr := NewTracker(repo, registry, opts, zap.NewNop())
	t.Cleanup(func() {
		tr.Wait()
		registry.Close()
	})
	return &fixture{tracker: tr, repo: repo, registry: registry, transport: transport}
}

// run starts the tracker's sync loop and waits until its first snapshot went out.
func (f *fixture) run(t *testing.T) {
	t.Helper()
	synced := make(chan struct{}, 1)
	unsubscribe, err := f.registry.Subscribe(realtime.PresenceTopic, func(_ context.Context, ev schema.Event) {
		if ev.Kind == schema.EventPresenceSync {
			select {
			case synced <- struct{}{}:
			default:
			}
		}
	})
	require.NoError(t, err)
	t.Cleanup(unsubscribe)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.tracker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	select {
	case <-synced:
	case <-time.After(time.Second):
		t.Fatal("tracker did not publish its initial snapshot")
	}
}

func (f *fixture) status(t *testing.T, userID string) schema.PresenceStatus {
	t.Helper()
	p, err := f.repo.Get(context.Background(), userID)
	if err != nil {
		return schema.StatusOffline
	}
	return p.Status
}

func userIDs(ps []schema.UserPresence) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.UserID)
	}
	return out
}

func TestTracker_CurrentPresenceFollowsTransport(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: time.Hour, SyncInterval: time.Hour})
	f.run(t)
	ctx := context.Background()

	_, err := f.tracker.SetStatus(ctx, "u1", schema.StatusOnline, nil)
	require.NoError(t, err)
	_, err = f.tracker.SetStatus(ctx, "u2", schema.StatusOnline, nil)
	require.NoError(t, err)
	_, err = f.tracker.SetStatus(ctx, "u2", schema.StatusBusy, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"u1", "u2"}, userIDs(f.tracker.CurrentPresence()))
	}, time.Second, 5*time.Millisecond)

	f.tracker.MarkOffline("u1")
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"u2"}, userIDs(f.tracker.CurrentPresence()))
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_StaleEntriesAreOffline(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: time.Minute, SyncInterval: time.Hour})
	f.run(t)

	_, err := f.tracker.SetStatus(context.Background(), "u1", schema.StatusOnline, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(f.tracker.CurrentPresence()) == 1 }, time.Second, 5*time.Millisecond)

	f.tracker.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	assert.Empty(t, f.tracker.CurrentPresence())
}

func TestTracker_SyncReplacesView(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: time.Hour, SyncInterval: time.Hour})
	f.run(t)
	ctx := context.Background()

	// rows written behind the transport's back show up after the next sync
	now := time.Now().UTC()
	require.NoError(t, f.repo.Upsert(ctx, schema.UserPresence{UserID: "a", Status: schema.StatusAway, LastSeen: now}))
	require.NoError(t, f.repo.Upsert(ctx, schema.UserPresence{UserID: "b", Status: schema.StatusOffline, LastSeen: now}))
	require.NoError(t, f.tracker.Sync(ctx))

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"a"}, userIDs(f.tracker.CurrentPresence()))
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_ResyncsAfterReconnect(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: time.Hour, SyncInterval: time.Hour})
	f.run(t)
	ctx := context.Background()

	f.transport.Disconnect()
	// the update is stored but its broadcast is lost
	_, err := f.tracker.SetStatus(ctx, "u1", schema.StatusOnline, nil)
	require.NoError(t, err)
	assert.Empty(t, f.tracker.CurrentPresence())

	f.transport.Reconnect()
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"u1"}, userIDs(f.tracker.CurrentPresence()))
	}, time.Second, 5*time.Millisecond)
}

func TestSession_InactivityAndActivity(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: time.Hour, InactivityTimeout: 50 * time.Millisecond})

	s, err := f.tracker.StartSession(context.Background(), "u1")
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	assert.Equal(t, schema.StatusOnline, f.status(t, "u1"))

	require.Eventually(t, func() bool { return f.status(t, "u1") == schema.StatusAway }, time.Second, 5*time.Millisecond)

	s.Activity()
	assert.Equal(t, schema.StatusOnline, f.status(t, "u1"))
}

func TestSession_InactivityKeepsBusy(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: time.Hour, InactivityTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	s, err := f.tracker.StartSession(ctx, "u1")
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	_, err = f.tracker.SetStatus(ctx, "u1", schema.StatusBusy, nil)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, schema.StatusBusy, f.status(t, "u1"))
}

func TestSession_HeartbeatRefreshesLastSeen(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: 10 * time.Millisecond, InactivityTimeout: time.Hour})

	s, err := f.tracker.StartSession(context.Background(), "u1")
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	first, err := f.repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		p, err := f.repo.Get(context.Background(), "u1")
		return err == nil && p.LastSeen.After(first.LastSeen)
	}, time.Second, 5*time.Millisecond)
}

func TestSession_StopIsIdempotentAndMarksOffline(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: 10 * time.Millisecond, InactivityTimeout: time.Hour})

	s, err := f.tracker.StartSession(context.Background(), "u1")
	require.NoError(t, err)

	s.Stop()
	s.Stop()
	s.Activity()
	f.tracker.Wait()

	assert.Equal(t, schema.StatusOffline, f.status(t, "u1"))

	// no heartbeat revives the user after Stop
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, schema.StatusOffline, f.status(t, "u1"))
}

func TestStartSession_RequiresUser(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.tracker.StartSession(context.Background(), "")
	assert.True(t, schema.IsValidation(err))
}

func TestSession_ReplacedSessionKeepsUserOnline(t *testing.T) {
	f := newFixture(t, Options{HeartbeatInterval: 10 * time.Millisecond, InactivityTimeout: time.Hour})

	old, err := f.tracker.StartSession(context.Background(), "u1")
	require.NoError(t, err)
	live, err := f.tracker.StartSession(context.Background(), "u1")
	require.NoError(t, err)
	t.Cleanup(live.Stop)
	assert.Equal(t, 2, f.tracker.LiveSessions("u1"))

	old.Stop()
	f.tracker.Wait()
	assert.Equal(t, 1, f.tracker.LiveSessions("u1"))
	assert.Equal(t, schema.StatusOnline, f.status(t, "u1"))

	// heartbeats of the live session keep the user online
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, schema.StatusOnline, f.status(t, "u1"))

	live.Stop()
	f.tracker.Wait()
	assert.Zero(t, f.tracker.LiveSessions("u1"))
	assert.Equal(t, schema.StatusOffline, f.status(t, "u1"))
}
