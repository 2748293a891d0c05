package adapter

import (
	"context"
	"sync"

	"gigpulse/internal/infrastructure/mail/port"
)

// MemoryMailer records sent mail. Err, when set, fails every Send.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []port.Email
	Err  error
}

func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

var _ port.Mailer = (*MemoryMailer)(nil)

func (m *MemoryMailer) Send(_ context.Context, e port.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *MemoryMailer) Sent() []port.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]port.Email(nil), m.sent...)
}
