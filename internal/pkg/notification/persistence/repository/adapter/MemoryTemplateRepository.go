package adapter

import (
	"context"
	"sync"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MemoryTemplateRepository keeps templates in process. Used by tests.
type MemoryTemplateRepository struct {
	mu    sync.Mutex
	rows  map[string]schema.NotificationTemplate
	calls int
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryTemplateRepository(templates ...schema.NotificationTemplate) *MemoryTemplateRepository {
	r := &MemoryTemplateRepository{rows: make(map[string]schema.NotificationTemplate)}
	for _, t := range templates {
		r.rows[t.ID] = t
	}
	return r
}

var _ repository.TemplateRepository = (*MemoryTemplateRepository)(nil)

func (r *MemoryTemplateRepository) ListActive(_ context.Context, triggerKey string, channel schema.Channel) ([]schema.NotificationTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.Err != nil {
		return nil, r.Err
	}
	var out []schema.NotificationTemplate
	for _, t := range r.rows {
		if t.TriggerKey == triggerKey && t.Channel == channel && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryTemplateRepository) Upsert(_ context.Context, t schema.NotificationTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.rows[t.ID] = t
	return nil
}

// Calls counts ListActive lookups.
func (r *MemoryTemplateRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
