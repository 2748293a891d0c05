package schema

import "time"

// PresenceStatus is a user's availability.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

var validStatuses = map[PresenceStatus]bool{
	StatusOnline: true, StatusAway: true, StatusBusy: true, StatusOffline: true,
}

// Valid reports whether s is one of the four known statuses.
func (s PresenceStatus) Valid() bool { return validStatuses[s] }

// UserPresence is the one-row-per-user presence record.
type UserPresence struct {
	UserID         string         `json:"user_id" db:"user_id"`
	Status         PresenceStatus `json:"status" db:"status"`
	LastSeen       time.Time      `json:"last_seen" db:"last_seen"`
	CurrentContext *string        `json:"current_context,omitempty" db:"current_context"`
}

// Stale reports whether the record is older than twice the heartbeat interval at now.
// Readers treat stale presence as offline.
func (p UserPresence) Stale(now time.Time, heartbeat time.Duration) bool {
	if heartbeat <= 0 {
		return false
	}
	return now.Sub(p.LastSeen) > 2*heartbeat
}
