package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// MemoryChatRepository is an in-process ChatRepository for tests.
type MemoryChatRepository struct {
	mu            sync.Mutex
	conversations map[string]*schema.Conversation
	participants  map[string][]*chat.Participant
	messages      map[string][]schema.Message
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]*schema.Conversation),
		participants:  make(map[string][]*chat.Participant),
		messages:      make(map[string][]schema.Message),
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

// snapshot copies the conversation with its current participant list.
func (r *MemoryChatRepository) snapshot(id string) schema.Conversation {
	c := *r.conversations[id]
	c.ParticipantIDs = nil
	for _, p := range r.participants[id] {
		c.ParticipantIDs = append(c.ParticipantIDs, p.UserID)
	}
	return c
}

func (r *MemoryChatRepository) participant(conversationID, userID string) *chat.Participant {
	for _, p := range r.participants[conversationID] {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *MemoryChatRepository) CreateConversation(_ context.Context, c schema.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored := c
	stored.ParticipantIDs = nil
	r.conversations[c.ID] = &stored
	for _, uid := range chat.UniqueParticipants(c.ParticipantIDs) {
		r.participants[c.ID] = append(r.participants[c.ID], &chat.Participant{ConversationID: c.ID, UserID: uid, JoinedAt: c.UpdatedAt})
	}
	return nil
}

func (r *MemoryChatRepository) AddParticipant(_ context.Context, conversationID string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.conversations[conversationID]; !ok {
		return schema.ErrNotFound
	}
	if r.participant(conversationID, userID) == nil {
		r.participants[conversationID] = append(r.participants[conversationID],
			&chat.Participant{ConversationID: conversationID, UserID: userID, JoinedAt: time.Now().UTC()})
	}
	return nil
}

func (r *MemoryChatRepository) GetConversation(_ context.Context, conversationID string) (schema.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.Conversation{}, r.Err
	}
	if _, ok := r.conversations[conversationID]; !ok {
		return schema.Conversation{}, schema.ErrNotFound
	}
	return r.snapshot(conversationID), nil
}

func (r *MemoryChatRepository) ListConversationsByUser(_ context.Context, userID string) ([]schema.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []schema.Conversation
	for id := range r.conversations {
		if r.participant(id, userID) != nil {
			out = append(out, r.snapshot(id))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryChatRepository) IsParticipant(_ context.Context, conversationID string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	return r.participant(conversationID, userID) != nil, nil
}

func (r *MemoryChatRepository) ListParticipantIDs(_ context.Context, conversationID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var ids []string
	for _, p := range r.participants[conversationID] {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m schema.Message) (schema.Message, schema.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.Message{}, schema.Conversation{}, r.Err
	}
	c, ok := r.conversations[m.ConversationID]
	if !ok {
		return schema.Message{}, schema.Conversation{}, schema.ErrNotFound
	}
	for _, prev := range r.messages[m.ConversationID] {
		if prev.CreatedAt.After(m.CreatedAt) {
			m.CreatedAt = prev.CreatedAt
		}
	}
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	if m.CreatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = m.CreatedAt
	}
	chat.StopTyping(c, m.SenderID)
	return m, r.snapshot(m.ConversationID), nil
}

func (r *MemoryChatRepository) LastMessageAt(_ context.Context, conversationID string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var last *time.Time
	for _, m := range r.messages[conversationID] {
		if last == nil || m.CreatedAt.After(*last) {
			ts := m.CreatedAt
			last = &ts
		}
	}
	return last, nil
}

func (r *MemoryChatRepository) ListMessages(_ context.Context, conversationID string, ascending bool) ([]schema.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := append([]schema.Message(nil), r.messages[conversationID]...)
	schema.SortMessages(out, ascending)
	return out, nil
}

func (r *MemoryChatRepository) ListMessagesSince(_ context.Context, conversationID string, since *time.Time) ([]schema.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []schema.Message
	for _, m := range r.messages[conversationID] {
		if since == nil || m.CreatedAt.After(*since) {
			out = append(out, m)
		}
	}
	schema.SortMessages(out, true)
	return out, nil
}

func (r *MemoryChatRepository) GetReadMarker(_ context.Context, conversationID string, userID string) (schema.ParticipantReadMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.ParticipantReadMarker{}, r.Err
	}
	p := r.participant(conversationID, userID)
	if p == nil {
		return schema.ParticipantReadMarker{}, schema.ErrNotFound
	}
	return p.ReadMarker(), nil
}

func (r *MemoryChatRepository) SetReadMarker(_ context.Context, conversationID string, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	p := r.participant(conversationID, userID)
	if p == nil {
		return schema.ErrNotFound
	}
	if p.LastReadAt == nil || at.After(*p.LastReadAt) {
		ts := at
		p.LastReadAt = &ts
	}
	msgs := r.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderID != userID && !msgs[i].CreatedAt.After(at) {
			msgs[i].IsRead = true
		}
	}
	return nil
}

func (r *MemoryChatRepository) StartTyping(_ context.Context, conversationID string, userID string, at time.Time) (schema.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.Conversation{}, r.Err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return schema.Conversation{}, schema.ErrNotFound
	}
	chat.StartTyping(c, userID, at)
	return r.snapshot(conversationID), nil
}

func (r *MemoryChatRepository) StopTyping(_ context.Context, conversationID string, userID string) (schema.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.Conversation{}, false, r.Err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return schema.Conversation{}, false, schema.ErrNotFound
	}
	cleared := chat.StopTyping(c, userID)
	return r.snapshot(conversationID), cleared, nil
}

func (r *MemoryChatRepository) ExpireTyping(_ context.Context, conversationID string, userID string, cutoff time.Time) (schema.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return schema.Conversation{}, false, r.Err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return schema.Conversation{}, false, schema.ErrNotFound
	}
	if !chat.TypingStale(*c, userID, cutoff) {
		return r.snapshot(conversationID), false, nil
	}
	chat.StopTyping(c, userID)
	return r.snapshot(conversationID), true, nil
}
