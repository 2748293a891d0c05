package adapter

import (
	"context"
	"sort"
	"sync"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MemoryDeviceTokenRepository keeps device tokens in process. Used by tests.
type MemoryDeviceTokenRepository struct {
	mu   sync.Mutex
	rows map[[2]string]schema.DeviceToken // (user_id, token)
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryDeviceTokenRepository() *MemoryDeviceTokenRepository {
	return &MemoryDeviceTokenRepository{rows: make(map[[2]string]schema.DeviceToken)}
}

var _ repository.DeviceTokenRepository = (*MemoryDeviceTokenRepository)(nil)

func (r *MemoryDeviceTokenRepository) Register(_ context.Context, t schema.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for key, row := range r.rows {
		if row.Token == t.Token && row.UserID != t.UserID {
			row.IsActive = false
			r.rows[key] = row
		}
	}
	t.IsActive = true
	r.rows[[2]string{t.UserID, t.Token}] = t
	return nil
}

func (r *MemoryDeviceTokenRepository) Deactivate(_ context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for key, row := range r.rows {
		if row.Token == token {
			row.IsActive = false
			r.rows[key] = row
			n++
		}
	}
	return n, nil
}

func (r *MemoryDeviceTokenRepository) ListActive(_ context.Context, userID string) ([]schema.DeviceToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []schema.DeviceToken
	for _, row := range r.rows {
		if row.UserID == userID && row.IsActive {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

// All returns every row, active or not, ordered by user then token.
func (r *MemoryDeviceTokenRepository) All() []schema.DeviceToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.DeviceToken, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Token < out[j].Token
	})
	return out
}
