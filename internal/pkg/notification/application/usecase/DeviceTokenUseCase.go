package usecase

import (
	"context"
	"strings"
	"time"

	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type RegisterTokenInput struct {
	UserID     string
	Token      string
	DeviceInfo string
}

// RegisterTokenUseCase upserts a device token for push delivery.
type RegisterTokenUseCase struct {
	Repo repository.DeviceTokenRepository
	Now  func() time.Time
}

func NewRegisterTokenUseCase(repo repository.DeviceTokenRepository) *RegisterTokenUseCase {
	return &RegisterTokenUseCase{Repo: repo}
}

// Execute reactivates a known (user, token) instead of duplicating it. The
// token is taken away from any other user that still held it.
func (uc *RegisterTokenUseCase) Execute(ctx context.Context, in RegisterTokenInput) (*schema.DeviceToken, error) {
	if in.UserID == "" {
		return nil, schema.NewValidationError("user_id", "is required")
	}
	token := strings.TrimSpace(in.Token)
	if token == "" {
		return nil, schema.NewValidationError("token", "is required")
	}
	t := schema.DeviceToken{
		UserID:     in.UserID,
		Token:      token,
		IsActive:   true,
		DeviceInfo: in.DeviceInfo,
		LastUsedAt: nowOr(uc.Now),
	}
	if err := uc.Repo.Register(ctx, t); err != nil {
		return nil, persistence(err)
	}
	return &t, nil
}

type DeactivateTokenInput struct {
	Token string
}

// DeactivateTokenUseCase turns a token off, keeping the row.
type DeactivateTokenUseCase struct {
	Repo repository.DeviceTokenRepository
}

func NewDeactivateTokenUseCase(repo repository.DeviceTokenRepository) *DeactivateTokenUseCase {
	return &DeactivateTokenUseCase{Repo: repo}
}

// Execute returns schema.ErrNotFound for a token that was never registered.
func (uc *DeactivateTokenUseCase) Execute(ctx context.Context, in DeactivateTokenInput) error {
	token := strings.TrimSpace(in.Token)
	if token == "" {
		return schema.NewValidationError("token", "is required")
	}
	n, err := uc.Repo.Deactivate(ctx, token)
	if err != nil {
		return persistence(err)
	}
	if n == 0 {
		return schema.ErrNotFound
	}
	return nil
}
