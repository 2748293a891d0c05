package adapter

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigpulse/internal/infrastructure/database"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type PgDeviceTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPgDeviceTokenRepository(pool *pgxpool.Pool) *PgDeviceTokenRepository {
	return &PgDeviceTokenRepository{pool: pool}
}

var _ repository.DeviceTokenRepository = (*PgDeviceTokenRepository)(nil)

// Register moves the token to t.UserID. Registrations of one token are
// serialized on a transaction-scoped advisory lock so only one owner stays
// active.
func (r *PgDeviceTokenRepository) Register(ctx context.Context, t schema.DeviceToken) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", t.Token); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE user_device_tokens SET is_active = false
			WHERE token = $1 AND user_id <> $2 AND is_active
		`, t.Token, t.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_device_tokens (user_id, token, is_active, device_info, last_used_at)
			VALUES ($1, $2, true, $3, $4)
			ON CONFLICT (user_id, token)
			DO UPDATE SET is_active = true,
			              device_info = EXCLUDED.device_info,
			              last_used_at = EXCLUDED.last_used_at
		`, t.UserID, t.Token, t.DeviceInfo, t.LastUsedAt)
		return err
	})
}

func (r *PgDeviceTokenRepository) Deactivate(ctx context.Context, token string) (int64, error) {
	ct, err := r.pool.Exec(ctx, "UPDATE user_device_tokens SET is_active = false WHERE token = $1", token)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgDeviceTokenRepository) ListActive(ctx context.Context, userID string) ([]schema.DeviceToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, token, is_active, COALESCE(device_info, ''), last_used_at
		FROM user_device_tokens
		WHERE user_id = $1 AND is_active
		ORDER BY last_used_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.DeviceToken
	for rows.Next() {
		var t schema.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.IsActive, &t.DeviceInfo, &t.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
