package adapter

import (
	"context"
	"sync"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MemoryProfileRepository serves fixed profiles. Used by tests.
type MemoryProfileRepository struct {
	mu   sync.Mutex
	rows map[string]repository.Profile
}

func NewMemoryProfileRepository(profiles ...repository.Profile) *MemoryProfileRepository {
	r := &MemoryProfileRepository{rows: make(map[string]repository.Profile)}
	for _, p := range profiles {
		r.rows[p.ID] = p
	}
	return r
}

var _ repository.ProfileRepository = (*MemoryProfileRepository)(nil)

func (r *MemoryProfileRepository) GetProfile(_ context.Context, userID string) (repository.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[userID]
	if !ok {
		return repository.Profile{}, schema.ErrNotFound
	}
	return p, nil
}
