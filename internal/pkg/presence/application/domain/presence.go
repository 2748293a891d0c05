package presence

import (
	"fmt"

	"gigpulse/internal/pkg/schema"
)

// Transition checks a status change. Every move is allowed except leaving
// offline for away or busy: a user who went offline must come back online first.
func Transition(from, to schema.PresenceStatus) error {
	if !to.Valid() {
		return schema.NewValidationError("status", fmt.Sprintf("unknown status %q", to))
	}
	if from == schema.StatusOffline && (to == schema.StatusAway || to == schema.StatusBusy) {
		return schema.NewValidationError("status", fmt.Sprintf("cannot move from %s to %s", from, to))
	}
	return nil
}

// HeartbeatStatus is the status a heartbeat leaves in place. Away and busy are
// explicit choices and survive heartbeats; offline is terminal, so the second
// result is false and the heartbeat is ignored.
func HeartbeatStatus(current schema.PresenceStatus) (schema.PresenceStatus, bool) {
	switch current {
	case schema.StatusAway, schema.StatusBusy:
		return current, true
	case schema.StatusOffline, "":
		return schema.StatusOffline, false
	default:
		return schema.StatusOnline, true
	}
}
