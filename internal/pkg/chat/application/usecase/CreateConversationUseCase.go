package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	chat "gigpulse/internal/pkg/chat/application/domain"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// CreateConversationInput carries the users of a new conversation.
type CreateConversationInput struct {
	ParticipantIDs []string
}

// CreateConversationUseCase opens a conversation and registers its participants.
type CreateConversationUseCase struct {
	Repo repository.ChatRepository
	Now  func() time.Time
}

func NewCreateConversationUseCase(repo repository.ChatRepository) *CreateConversationUseCase {
	return &CreateConversationUseCase{Repo: repo}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*schema.Conversation, error) {
	ids := chat.UniqueParticipants(in.ParticipantIDs)
	if len(ids) == 0 {
		return nil, schema.NewValidationError("participant_ids", "must include at least one user id")
	}

	conv := schema.Conversation{
		ID:             uuid.NewString(),
		ParticipantIDs: ids,
		UpdatedAt:      nowOr(uc.Now).UTC().Truncate(time.Microsecond),
	}
	if err := uc.Repo.CreateConversation(ctx, conv); err != nil {
		return nil, persistence(err)
	}
	return &conv, nil
}
