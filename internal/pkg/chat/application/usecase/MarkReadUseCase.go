package usecase

import (
	"context"
	"errors"
	"time"

	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type MarkReadInput struct {
	ConversationID string
	UserID         string
}

// MarkReadUseCase moves the user's read marker to now. Repeating it is harmless.
type MarkReadUseCase struct {
	Repo repository.ChatRepository
	Now  func() time.Time
}

func NewMarkReadUseCase(repo repository.ChatRepository) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (*schema.ParticipantReadMarker, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, schema.NewValidationError("conversation_id", "and user_id are required")
	}

	last, err := uc.Repo.LastMessageAt(ctx, in.ConversationID)
	if err != nil {
		return nil, persistence(err)
	}
	at := chat.ReadAt(nowOr(uc.Now), last)

	if err := uc.Repo.SetReadMarker(ctx, in.ConversationID, in.UserID, at); err != nil {
		if errors.Is(err, schema.ErrNotFound) {
			return nil, chat.ErrNotParticipant
		}
		return nil, persistence(err)
	}
	return &schema.ParticipantReadMarker{ConversationID: in.ConversationID, UserID: in.UserID, LastReadAt: &at}, nil
}
