package tracker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/infrastructure/realtime"
	"gigpulse/internal/pkg/presence/application/usecase"
	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// Options are the presence timings. Zero values fall back to the defaults.
type Options struct {
	HeartbeatInterval time.Duration
	InactivityTimeout time.Duration
	SyncInterval      time.Duration
	// WriteTimeout bounds background writes such as the offline mark on Stop.
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = 5 * time.Minute
	}
	if o.SyncInterval <= 0 {
		o.SyncInterval = time.Minute
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

// Bus is the part of the registry the tracker needs.
type Bus interface {
	realtime.Publisher
	realtime.Subscriber
}

// Tracker owns user presence: explicit status changes, session heartbeats,
// inactivity detection and the locally synced view of who is around.
type Tracker struct {
	repo   repository.PresenceRepository
	bus    Bus
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	setStatus   *usecase.SetStatusUseCase
	heartbeat   *usecase.HeartbeatUseCase
	markOffline *usecase.MarkOfflineUseCase
	sync        *usecase.SyncPresenceUseCase

	mu    sync.RWMutex
	known map[string]schema.UserPresence

	// sessions counts live sessions per user. The offline mark of an ended
	// session is written under sessionsMu, only once the count is zero.
	sessionsMu sync.Mutex
	sessions   map[string]int

	background sync.WaitGroup
}

func NewTracker(repo repository.PresenceRepository, bus Bus, opts Options, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("presence")
	return &Tracker{
		repo:        repo,
		bus:         bus,
		opts:        opts.withDefaults(),
		logger:      logger,
		now:         time.Now,
		setStatus:   usecase.NewSetStatusUseCase(repo, bus, logger),
		heartbeat:   usecase.NewHeartbeatUseCase(repo, bus, logger),
		markOffline: usecase.NewMarkOfflineUseCase(repo, bus, logger),
		sync:        usecase.NewSyncPresenceUseCase(repo, bus),
		known:       make(map[string]schema.UserPresence),
		sessions:    make(map[string]int),
	}
}

// Options returns the effective timings.
func (t *Tracker) Options() Options { return t.opts }

func (t *Tracker) SetStatus(ctx context.Context, userID string, status schema.PresenceStatus, currentContext *string) (*schema.UserPresence, error) {
	return t.setStatus.Execute(ctx, usecase.SetStatusInput{UserID: userID, Status: status, Context: currentContext})
}

func (t *Tracker) Heartbeat(ctx context.Context, userID string) (*schema.UserPresence, error) {
	return t.heartbeat.Execute(ctx, usecase.HeartbeatInput{UserID: userID})
}

// MarkOffline records userID as offline in the background and returns at once.
// Failures are logged.
func (t *Tracker) MarkOffline(userID string) {
	t.markOfflineAfter(nil, userID)
}

// markOfflineAfter writes the offline mark once after is closed.
func (t *Tracker) markOfflineAfter(after <-chan struct{}, userID string) {
	t.background.Add(1)
	go func() {
		defer t.background.Done()
		if after != nil {
			<-after
		}
		t.writeOffline(userID)
	}()
}

// endSession drops one live session of userID. When it was the last one the
// user is marked offline after is closed, unless a new session started meanwhile.
func (t *Tracker) endSession(after <-chan struct{}, userID string) {
	t.sessionsMu.Lock()
	t.sessions[userID]--
	last := t.sessions[userID] <= 0
	if last {
		delete(t.sessions, userID)
	}
	t.sessionsMu.Unlock()
	if !last {
		return
	}

	t.background.Add(1)
	go func() {
		defer t.background.Done()
		<-after
		t.sessionsMu.Lock()
		defer t.sessionsMu.Unlock()
		if t.sessions[userID] > 0 {
			return
		}
		t.writeOffline(userID)
	}()
}

// LiveSessions returns the number of open sessions of userID.
func (t *Tracker) LiveSessions(userID string) int {
	t.sessionsMu.Lock()
	defer t.sessionsMu.Unlock()
	return t.sessions[userID]
}

func (t *Tracker) writeOffline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.WriteTimeout)
	defer cancel()
	if err := t.markOffline.Execute(ctx, usecase.MarkOfflineInput{UserID: userID}); err != nil {
		t.logger.Warn("mark offline failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Wait blocks until background writes started by MarkOffline have finished.
func (t *Tracker) Wait() { t.background.Wait() }

// Sync publishes a snapshot of every non-offline user on the presence topic.
func (t *Tracker) Sync(ctx context.Context) error {
	_, err := t.sync.Execute(ctx)
	return err
}

// CurrentPresence returns the non-offline users from the last synced transport
// state, sorted by user id. Entries older than twice the heartbeat interval are
// treated as offline and left out.
func (t *Tracker) CurrentPresence() []schema.UserPresence {
	now := t.now()
	t.mu.RLock()
	out := make([]schema.UserPresence, 0, len(t.known))
	for _, p := range t.known {
		if p.Status == schema.StatusOffline || p.Stale(now, t.opts.HeartbeatInterval) {
			continue
		}
		out = append(out, p)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Run keeps the local presence view in sync until ctx is canceled: it listens
// on the presence topic, publishes a snapshot at start, after every reconnect
// and every SyncInterval.
func (t *Tracker) Run(ctx context.Context) error {
	unsubscribe, err := t.bus.Subscribe(realtime.PresenceTopic, t.apply)
	if err != nil {
		return err
	}
	defer unsubscribe()

	t.syncLogged(ctx)

	ticker := time.NewTicker(t.opts.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.syncLogged(ctx)
		}
	}
}

func (t *Tracker) syncLogged(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.WriteTimeout)
	defer cancel()
	if err := t.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Warn("presence sync failed", zap.Error(err))
	}
}

// apply folds a presence-topic event into the local view.
func (t *Tracker) apply(ctx context.Context, ev schema.Event) {
	switch ev.Kind {
	case schema.EventPresenceState:
		p := *ev.Presence
		t.mu.Lock()
		if cur, ok := t.known[p.UserID]; !ok || !cur.LastSeen.After(p.LastSeen) {
			t.known[p.UserID] = p
		}
		t.mu.Unlock()
	case schema.EventPresenceSync:
		next := make(map[string]schema.UserPresence, len(ev.Snapshot))
		for _, p := range ev.Snapshot {
			next[p.UserID] = p
		}
		t.mu.Lock()
		t.known = next
		t.mu.Unlock()
	case schema.EventResubscribed:
		// Updates published while disconnected are lost; rebuild from the store.
		go t.syncLogged(context.WithoutCancel(ctx))
	}
}

// current reads the stored status, treating unknown users as offline.
func (t *Tracker) current(ctx context.Context, userID string) (schema.PresenceStatus, error) {
	p, err := t.repo.Get(ctx, userID)
	if errors.Is(err, schema.ErrNotFound) {
		return schema.StatusOffline, nil
	}
	if err != nil {
		return "", err
	}
	return p.Status, nil
}
