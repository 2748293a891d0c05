package usecase

import (
	"context"
	"fmt"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type MarkAllAsReadInput struct {
	UserID string
	// Scope limits the flip to one inbox; "" and AudienceAll mean every notification.
	Scope schema.Audience
}

type MarkAllAsReadUseCase struct {
	Repo repository.NotificationRepository
}

func NewMarkAllAsReadUseCase(repo repository.NotificationRepository) *MarkAllAsReadUseCase {
	return &MarkAllAsReadUseCase{Repo: repo}
}

// Execute returns how many notifications changed; a second call returns 0.
func (uc *MarkAllAsReadUseCase) Execute(ctx context.Context, in MarkAllAsReadInput) (int64, error) {
	if in.UserID == "" {
		return 0, schema.NewValidationError("user_id", "is required")
	}
	types, err := scopeTypes(in.Scope)
	if err != nil {
		return 0, err
	}
	n, err := uc.Repo.MarkAllAsRead(ctx, in.UserID, types)
	if err != nil {
		return 0, persistence(err)
	}
	return n, nil
}

// scopeTypes maps an inbox scope onto the notification types it shows.
// nil means unfiltered.
func scopeTypes(scope schema.Audience) ([]schema.NotificationType, error) {
	switch scope {
	case "", schema.AudienceAll:
		return nil, nil
	case schema.AudienceClient, schema.AudienceProvider:
		return schema.TypesFor(scope), nil
	default:
		return nil, schema.NewValidationError("scope", fmt.Sprintf("unknown scope %q", scope))
	}
}
