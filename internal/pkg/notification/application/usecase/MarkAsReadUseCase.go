package usecase

import (
	"context"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type MarkAsReadInput struct {
	NotificationID string
	// UserID, when set, must own the notification.
	UserID string
}

type MarkAsReadUseCase struct {
	Repo repository.NotificationRepository
}

func NewMarkAsReadUseCase(repo repository.NotificationRepository) *MarkAsReadUseCase {
	return &MarkAsReadUseCase{Repo: repo}
}

// Execute is idempotent: marking a read notification again succeeds.
func (uc *MarkAsReadUseCase) Execute(ctx context.Context, in MarkAsReadInput) error {
	if in.NotificationID == "" {
		return schema.NewValidationError("notification_id", "is required")
	}
	if in.UserID != "" {
		n, err := uc.Repo.Get(ctx, in.NotificationID)
		if err != nil {
			return persistence(err)
		}
		if n.UserID != in.UserID {
			return ErrNotOwner
		}
		if n.Read {
			return nil
		}
	}
	if err := uc.Repo.MarkAsRead(ctx, in.NotificationID); err != nil {
		return persistence(err)
	}
	return nil
}
