package usecase

import (
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
)

// UseCases bundles the notification application services.
type UseCases struct {
	Dispatch        *DispatchUseCase
	MarkAsRead      *MarkAsReadUseCase
	MarkAllAsRead   *MarkAllAsReadUseCase
	List            *ListNotificationsUseCase
	RegisterToken   *RegisterTokenUseCase
	DeactivateToken *DeactivateTokenUseCase
}

func NewUseCases(dispatch *DispatchUseCase, notifications repository.NotificationRepository, tokens repository.DeviceTokenRepository) *UseCases {
	return &UseCases{
		Dispatch:        dispatch,
		MarkAsRead:      NewMarkAsReadUseCase(notifications),
		MarkAllAsRead:   NewMarkAllAsReadUseCase(notifications),
		List:            NewListNotificationsUseCase(notifications),
		RegisterToken:   NewRegisterTokenUseCase(tokens),
		DeactivateToken: NewDeactivateTokenUseCase(tokens),
	}
}
