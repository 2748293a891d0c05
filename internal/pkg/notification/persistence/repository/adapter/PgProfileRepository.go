package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"gigpulse/internal/infrastructure/database"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

// PgProfileRepository reads the profiles table owned by the account service.
type PgProfileRepository struct {
	db database.DB
}

func NewPgProfileRepository(db database.DB) *PgProfileRepository {
	return &PgProfileRepository{db: db}
}

var _ repository.ProfileRepository = (*PgProfileRepository)(nil)

func (r *PgProfileRepository) GetProfile(ctx context.Context, userID string) (repository.Profile, error) {
	var p repository.Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(email, ''), full_name FROM profiles WHERE id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.Profile{}, schema.ErrNotFound
	}
	return p, err
}
