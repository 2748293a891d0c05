package usecase

import (
	"context"

	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// LoadHistoryInput selects a conversation's full message log. When UserID is
// set the caller must be a participant.
type LoadHistoryInput struct {
	ConversationID string
	UserID         string
	Ascending      bool
}

// LoadHistoryUseCase replays a conversation, on first open and after a
// reconnect gap.
type LoadHistoryUseCase struct {
	Repo repository.ChatRepository
}

func NewLoadHistoryUseCase(repo repository.ChatRepository) *LoadHistoryUseCase {
	return &LoadHistoryUseCase{Repo: repo}
}

// Execute returns messages ordered by created_at, then id.
func (uc *LoadHistoryUseCase) Execute(ctx context.Context, in LoadHistoryInput) ([]schema.Message, error) {
	if in.ConversationID == "" {
		return nil, schema.NewValidationError("conversation_id", "is required")
	}
	if in.UserID != "" {
		ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
		if err != nil {
			return nil, persistence(err)
		}
		if !ok {
			return nil, chat.ErrNotParticipant
		}
	}

	msgs, err := uc.Repo.ListMessages(ctx, in.ConversationID, in.Ascending)
	if err != nil {
		return nil, persistence(err)
	}
	// stores may order ties differently; the id tie-break must hold everywhere
	schema.SortMessages(msgs, in.Ascending)
	return msgs, nil
}
