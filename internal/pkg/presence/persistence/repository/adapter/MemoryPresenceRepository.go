package adapter

import (
	"context"
	"sort"
	"sync"

	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MemoryPresenceRepository keeps presence rows in process. Used by tests.
type MemoryPresenceRepository struct {
	mu   sync.Mutex
	rows map[string]schema.UserPresence
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryPresenceRepository() *MemoryPresenceRepository {
	return &MemoryPresenceRepository{rows: make(map[string]schema.UserPresence)}
}

var _ repository.PresenceRepository = (*MemoryPresenceRepository)(nil)

func (r *MemoryPresenceRepository) Get(_ context.Context, userID string) (schema.UserPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.UserPresence{}, r.Err
	}
	p, ok := r.rows[userID]
	if !ok {
		return schema.UserPresence{}, schema.ErrNotFound
	}
	return p, nil
}

func (r *MemoryPresenceRepository) Upsert(_ context.Context, p schema.UserPresence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.rows[p.UserID] = p
	return nil
}

func (r *MemoryPresenceRepository) ListActive(_ context.Context) ([]schema.UserPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []schema.UserPresence
	for _, p := range r.rows {
		if p.Status != schema.StatusOffline {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
