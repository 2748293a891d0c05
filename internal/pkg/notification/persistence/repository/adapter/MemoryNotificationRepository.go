package adapter

import (
	"context"
	"sort"
	"sync"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MemoryNotificationRepository keeps notifications in process. Used by tests.
type MemoryNotificationRepository struct {
	mu   sync.Mutex
	rows map[string]schema.Notification
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{rows: make(map[string]schema.Notification)}
}

var _ repository.NotificationRepository = (*MemoryNotificationRepository)(nil)

func (r *MemoryNotificationRepository) Insert(_ context.Context, ns []schema.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, n := range ns {
		r.rows[n.ID] = n
	}
	return nil
}

func (r *MemoryNotificationRepository) Get(_ context.Context, id string) (schema.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.Notification{}, r.Err
	}
	n, ok := r.rows[id]
	if !ok {
		return schema.Notification{}, schema.ErrNotFound
	}
	return n, nil
}

func (r *MemoryNotificationRepository) MarkAsRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	n, ok := r.rows[id]
	if !ok {
		return schema.ErrNotFound
	}
	n.Read = true
	r.rows[id] = n
	return nil
}

func (r *MemoryNotificationRepository) MarkAllAsRead(_ context.Context, userID string, types []schema.NotificationType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for id, row := range r.rows {
		if row.UserID != userID || row.Read || !typeIn(row.Type, types) {
			continue
		}
		row.Read = true
		r.rows[id] = row
		n++
	}
	return n, nil
}

func (r *MemoryNotificationRepository) List(_ context.Context, f repository.NotificationFilter) ([]schema.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []schema.Notification
	for _, row := range r.rows {
		if row.UserID != f.UserID || (f.UnreadOnly && row.Read) || !typeIn(row.Type, f.Types) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func typeIn(t schema.NotificationType, types []schema.NotificationType) bool {
	if types == nil {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
