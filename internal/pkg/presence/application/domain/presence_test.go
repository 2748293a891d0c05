package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gigpulse/internal/pkg/schema"
)

func TestTransition(t *testing.T) {
	all := []schema.PresenceStatus{schema.StatusOnline, schema.StatusAway, schema.StatusBusy, schema.StatusOffline}
	for _, from := range all {
		for _, to := range all {
			err := Transition(from, to)
			blocked := from == schema.StatusOffline && (to == schema.StatusAway || to == schema.StatusBusy)
			if blocked {
				assert.True(t, schema.IsValidation(err), "%s -> %s", from, to)
			} else {
				assert.NoError(t, err, "%s -> %s", from, to)
			}
		}
	}
	assert.True(t, schema.IsValidation(Transition(schema.StatusOnline, "sleeping")))
}

func TestHeartbeatStatus(t *testing.T) {
	cases := []struct {
		in    schema.PresenceStatus
		want  schema.PresenceStatus
		alive bool
	}{
		{schema.StatusOnline, schema.StatusOnline, true},
		{schema.StatusAway, schema.StatusAway, true},
		{schema.StatusBusy, schema.StatusBusy, true},
		{schema.StatusOffline, schema.StatusOffline, false},
		{"", schema.StatusOffline, false},
	}
	for _, c := range cases {
		got, alive := HeartbeatStatus(c.in)
		assert.Equal(t, c.want, got, c.in)
		assert.Equal(t, c.alive, alive, c.in)
	}
}
