package usecase

import (
	"context"
	"fmt"

	"gigpulse/internal/infrastructure/realtime"
	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// SyncPresenceUseCase broadcasts the full set of non-offline users so that
// every node can rebuild its local presence view.
type SyncPresenceUseCase struct {
	Repo      repository.PresenceRepository
	Publisher realtime.Publisher
}

func NewSyncPresenceUseCase(repo repository.PresenceRepository, pub realtime.Publisher) *SyncPresenceUseCase {
	return &SyncPresenceUseCase{Repo: repo, Publisher: pub}
}

// Execute returns the snapshot it published. A transport failure is returned
// as *schema.TransportError together with the snapshot.
func (uc *SyncPresenceUseCase) Execute(ctx context.Context) ([]schema.UserPresence, error) {
	snapshot, err := uc.Repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if uc.Publisher == nil {
		return snapshot, nil
	}
	if err := uc.Publisher.Publish(ctx, realtime.PresenceTopic, schema.PresenceSyncEvent(snapshot)); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}
