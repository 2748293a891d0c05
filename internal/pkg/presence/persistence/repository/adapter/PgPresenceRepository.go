package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"gigpulse/internal/infrastructure/database"
	repository "gigpulse/internal/pkg/presence/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type PgPresenceRepository struct {
	db database.DB
}

func NewPgPresenceRepository(db database.DB) *PgPresenceRepository {
	return &PgPresenceRepository{db: db}
}

var _ repository.PresenceRepository = (*PgPresenceRepository)(nil)

func (r *PgPresenceRepository) Get(ctx context.Context, userID string) (schema.UserPresence, error) {
	var p schema.UserPresence
	err := r.db.QueryRow(ctx, `
		SELECT user_id, status, last_seen, current_context
		FROM user_presence
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Status, &p.LastSeen, &p.CurrentContext)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.UserPresence{}, schema.ErrNotFound
	}
	return p, err
}

func (r *PgPresenceRepository) Upsert(ctx context.Context, p schema.UserPresence) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_presence (user_id, status, last_seen, current_context)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET status = EXCLUDED.status,
		              last_seen = EXCLUDED.last_seen,
		              current_context = EXCLUDED.current_context
	`, p.UserID, string(p.Status), p.LastSeen, p.CurrentContext)
	return err
}

func (r *PgPresenceRepository) ListActive(ctx context.Context) ([]schema.UserPresence, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, status, last_seen, current_context
		FROM user_presence
		WHERE status <> 'offline'
		ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.UserPresence
	for rows.Next() {
		var p schema.UserPresence
		if err := rows.Scan(&p.UserID, &p.Status, &p.LastSeen, &p.CurrentContext); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
