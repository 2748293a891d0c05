package usecase

import (
	"context"
	"errors"

	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type ComputeUnreadInput struct {
	ConversationID string
	UserID         string
}

// ComputeUnreadUseCase counts messages from others after the user's read marker.
type ComputeUnreadUseCase struct {
	Repo repository.ChatRepository
}

func NewComputeUnreadUseCase(repo repository.ChatRepository) *ComputeUnreadUseCase {
	return &ComputeUnreadUseCase{Repo: repo}
}

func (uc *ComputeUnreadUseCase) Execute(ctx context.Context, in ComputeUnreadInput) (int, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return 0, schema.NewValidationError("conversation_id", "and user_id are required")
	}

	marker, err := uc.Repo.GetReadMarker(ctx, in.ConversationID, in.UserID)
	if errors.Is(err, schema.ErrNotFound) {
		return 0, chat.ErrNotParticipant
	}
	if err != nil {
		return 0, persistence(err)
	}

	msgs, err := uc.Repo.ListMessagesSince(ctx, in.ConversationID, marker.LastReadAt)
	if err != nil {
		return 0, persistence(err)
	}
	return chat.CountUnread(msgs, marker), nil
}
