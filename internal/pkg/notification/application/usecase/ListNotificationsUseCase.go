package usecase

import (
	"context"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type ListNotificationsInput struct {
	UserID     string
	Scope      schema.Audience
	UnreadOnly bool
	Limit      int
}

const maxListLimit = 200

type ListNotificationsUseCase struct {
	Repo repository.NotificationRepository
}

func NewListNotificationsUseCase(repo repository.NotificationRepository) *ListNotificationsUseCase {
	return &ListNotificationsUseCase{Repo: repo}
}

// Execute returns the user's notifications, newest first.
func (uc *ListNotificationsUseCase) Execute(ctx context.Context, in ListNotificationsInput) ([]schema.Notification, error) {
	if in.UserID == "" {
		return nil, schema.NewValidationError("user_id", "is required")
	}
	types, err := scopeTypes(in.Scope)
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}
	out, err := uc.Repo.List(ctx, repository.NotificationFilter{
		UserID:     in.UserID,
		Types:      types,
		UnreadOnly: in.UnreadOnly,
		Limit:      limit,
	})
	if err != nil {
		return nil, persistence(err)
	}
	if out == nil {
		out = []schema.Notification{}
	}
	return out, nil
}
