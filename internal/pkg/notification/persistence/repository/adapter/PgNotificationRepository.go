package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigpulse/internal/infrastructure/database"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type PgNotificationRepository struct {
	pool *pgxpool.Pool
}

func NewPgNotificationRepository(pool *pgxpool.Pool) *PgNotificationRepository {
	return &PgNotificationRepository{pool: pool}
}

var _ repository.NotificationRepository = (*PgNotificationRepository)(nil)

const notificationColumns = `id, user_id, title, body, type, channel, read, created_at, data`

func scanNotification(row pgx.Row) (schema.Notification, error) {
	var n schema.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Type, &n.Channel, &n.Read, &n.CreatedAt, &n.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.Notification{}, schema.ErrNotFound
	}
	return n, err
}

func (r *PgNotificationRepository) Insert(ctx context.Context, ns []schema.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, n := range ns {
			data := n.Data
			if data == nil {
				data = map[string]string{}
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO notifications (id, user_id, title, body, type, channel, read, created_at, data)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, n.ID, n.UserID, n.Title, n.Body, string(n.Type), string(n.Channel), n.Read, n.CreatedAt, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgNotificationRepository) Get(ctx context.Context, id string) (schema.Notification, error) {
	return scanNotification(r.pool.QueryRow(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id))
}

func (r *PgNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, "UPDATE notifications SET read = true WHERE id = $1", id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return schema.ErrNotFound
	}
	return nil
}

func (r *PgNotificationRepository) MarkAllAsRead(ctx context.Context, userID string, types []schema.NotificationType) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE user_id = $1 AND NOT read
		  AND ($2::text[] IS NULL OR type = ANY($2))
	`, userID, typeNames(types))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgNotificationRepository) List(ctx context.Context, f repository.NotificationFilter) ([]schema.Notification, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		  AND ($2::text[] IS NULL OR type = ANY($2))
		  AND (NOT $3 OR NOT read)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, f.UserID, typeNames(f.Types), f.UnreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// typeNames returns nil for nil so the query sees NULL and skips the filter.
func typeNames(types []schema.NotificationType) []string {
	if types == nil {
		return nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
