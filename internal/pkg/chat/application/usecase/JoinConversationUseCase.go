package usecase

import (
	"context"

	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// JoinConversationInput validates a request to attach a user session to a conversation.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase ensures the user belongs to the conversation before
// the session subscribes to its topic.
type JoinConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return schema.NewValidationError("conversation_id", "and user_id are required")
	}

	ok, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return persistence(err)
	}
	if !ok {
		return chat.ErrNotParticipant
	}
	return nil
}
