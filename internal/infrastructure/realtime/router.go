package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gigpulse/internal/pkg/schema"
)

// Sender is the outbound side of a client session.
type Sender interface {
	SendJSON(v any) error
}

// EventFrame is the outbound websocket frame for a realtime event.
type EventFrame struct {
	Type  string       `json:"type"`
	Event schema.Event `json:"event"`
}

// Router tracks websocket sessions and the registry subscriptions each one holds.
// It keeps one active session per user; attaching a second one replaces the first.
type Router struct {
	registry *Registry
	logger   *zap.Logger

	mu           sync.Mutex
	sessions     map[string]*Connection            // sessionID -> connection
	userSessions map[string]string                 // userID -> sessionID
	sessionSubs  map[string]map[string]Unsubscribe // sessionID -> topic -> unsubscribe
}

// NewRouter constructs an initialized Router.
func NewRouter(registry *Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry:     registry,
		logger:       logger.Named("router"),
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]string),
		sessionSubs:  make(map[string]map[string]Unsubscribe),
	}
}

// Attach registers conn and starts its write loop. A previous session of the same
// user is detached and closed after the swap.
func (r *Router) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if existingID, ok := r.userSessions[conn.UserID]; ok {
		previous = r.sessions[existingID]
	}
	r.sessions[conn.ID] = conn
	r.userSessions[conn.UserID] = conn.ID
	r.sessionSubs[conn.ID] = make(map[string]Unsubscribe)
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		r.Detach(previous)
		previous.Close(4001, "session replaced")
	}
}

// Detach drops conn and all of its topic subscriptions.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	subs := r.sessionSubs[conn.ID]
	delete(r.sessionSubs, conn.ID)
	delete(r.sessions, conn.ID)
	if current, ok := r.userSessions[conn.UserID]; ok && current == conn.ID {
		delete(r.userSessions, conn.UserID)
	}
	r.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
}

// Join subscribes conn to topic. Joining twice is a no-op.
func (r *Router) Join(topic string, conn *Connection) error {
	r.mu.Lock()
	subs, ok := r.sessionSubs[conn.ID]
	if !ok {
		r.mu.Unlock()
		return ErrConnectionClosed
	}
	if _, joined := subs[topic]; joined {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	unsubscribe, err := r.registry.Subscribe(topic, forwardTo(conn, r.logger))
	if err != nil {
		return err
	}

	r.mu.Lock()
	subs, ok = r.sessionSubs[conn.ID]
	if !ok {
		r.mu.Unlock()
		unsubscribe()
		return ErrConnectionClosed
	}
	if _, joined := subs[topic]; joined {
		r.mu.Unlock()
		unsubscribe()
		return nil
	}
	subs[topic] = unsubscribe
	r.mu.Unlock()
	return nil
}

// Leave removes conn from topic.
func (r *Router) Leave(topic string, conn *Connection) {
	r.mu.Lock()
	unsubscribe := r.sessionSubs[conn.ID][topic]
	delete(r.sessionSubs[conn.ID], topic)
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Topics lists the topics conn is joined to.
func (r *Router) Topics(conn *Connection) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessionSubs[conn.ID]))
	for topic := range r.sessionSubs[conn.ID] {
		out = append(out, topic)
	}
	return out
}

// Close detaches and closes every session.
func (r *Router) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		r.Detach(conn)
		conn.Close(1001, "router shutdown")
	}
}

func forwardTo(s Sender, logger *zap.Logger) Listener {
	return func(_ context.Context, ev schema.Event) {
		if err := s.SendJSON(EventFrame{Type: "event", Event: ev}); err != nil {
			logger.Debug("drop event for closed session", zap.String("topic", ev.Topic), zap.Error(err))
		}
	}
}
