package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gigpulse/internal/pkg/schema"
)

// Session is one live connection of a user. It heartbeats on a ticker and
// moves the user to away after InactivityTimeout without Activity.
type Session struct {
	t      *Tracker
	userID string
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	idle    bool
	stopped bool
}

// StartSession marks userID online and starts its heartbeat and inactivity timers.
// A user with several sessions goes offline only when the last one stops.
func (t *Tracker) StartSession(ctx context.Context, userID string) (*Session, error) {
	// Counted before the online write, so a pending offline mark of an ended
	// session either lands first or sees this one and is skipped.
	t.sessionsMu.Lock()
	t.sessions[userID]++
	t.sessionsMu.Unlock()

	if _, err := t.SetStatus(ctx, userID, schema.StatusOnline, nil); err != nil {
		t.sessionsMu.Lock()
		if t.sessions[userID]--; t.sessions[userID] <= 0 {
			delete(t.sessions, userID)
		}
		t.sessionsMu.Unlock()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{t: t, userID: userID, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.timer = time.AfterFunc(t.opts.InactivityTimeout, s.inactive)
	s.mu.Unlock()

	go s.heartbeatLoop(runCtx)
	return s, nil
}

func (s *Session) UserID() string { return s.userID }

// Activity resets the inactivity timer. A user the timer moved to away is
// brought back online.
func (s *Session) Activity() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer.Reset(s.t.opts.InactivityTimeout)
	wasIdle := s.idle
	s.idle = false
	s.mu.Unlock()

	if wasIdle {
		s.move(schema.StatusAway, schema.StatusOnline)
	}
}

// Stop cancels the timers and, if this was the user's last session, marks the
// user offline without blocking. Calling it more than once is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.timer.Stop()
	s.mu.Unlock()

	s.cancel()
	// An in-flight heartbeat must not land after the offline mark.
	s.t.endSession(s.done, s.userID)
}

func (s *Session) heartbeatLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.t.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hbCtx, cancel := context.WithTimeout(ctx, s.t.opts.WriteTimeout)
			if _, err := s.t.Heartbeat(hbCtx, s.userID); err != nil {
				s.t.logger.Debug("heartbeat dropped", zap.String("user_id", s.userID), zap.Error(err))
			}
			cancel()
		}
	}
}

func (s *Session) inactive() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.idle = true
	s.mu.Unlock()

	s.move(schema.StatusOnline, schema.StatusAway)
}

// move sets the user to `to` only while the stored status is `from`, so an
// explicit busy is never overridden by the timers.
func (s *Session) move(from, to schema.PresenceStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), s.t.opts.WriteTimeout)
	defer cancel()

	cur, err := s.t.current(ctx, s.userID)
	if err != nil {
		s.t.logger.Debug("presence read failed", zap.String("user_id", s.userID), zap.Error(err))
		return
	}
	if cur != from {
		return
	}
	if _, err := s.t.SetStatus(ctx, s.userID, to, nil); err != nil {
		s.t.logger.Debug("presence update failed", zap.String("user_id", s.userID), zap.Error(err))
	}
}
