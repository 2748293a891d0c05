package usecase

import (
	"context"

	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type ListConversationsInput struct {
	UserID string
}

// ConversationSummary is one inbox row.
type ConversationSummary struct {
	Conversation schema.Conversation `json:"conversation"`
	Unread       int                 `json:"unread"`
}

// ListConversationsUseCase lists a user's conversations, newest activity
// first, with their unread counts.
type ListConversationsUseCase struct {
	Repo   repository.ChatRepository
	unread *ComputeUnreadUseCase
}

func NewListConversationsUseCase(repo repository.ChatRepository) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, unread: NewComputeUnreadUseCase(repo)}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]ConversationSummary, error) {
	if in.UserID == "" {
		return nil, schema.NewValidationError("user_id", "is required")
	}

	convs, err := uc.Repo.ListConversationsByUser(ctx, in.UserID)
	if err != nil {
		return nil, persistence(err)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		n, err := uc.unread.Execute(ctx, ComputeUnreadInput{ConversationID: c.ID, UserID: in.UserID})
		if err != nil {
			return nil, err
		}
		out = append(out, ConversationSummary{Conversation: c, Unread: n})
	}
	return out, nil
}
