package adapter

import (
	"context"

	"gigpulse/internal/infrastructure/database"
	repository "gigpulse/internal/pkg/notification/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type PgTemplateRepository struct {
	db database.DB
}

func NewPgTemplateRepository(db database.DB) *PgTemplateRepository {
	return &PgTemplateRepository{db: db}
}

var _ repository.TemplateRepository = (*PgTemplateRepository)(nil)

func (r *PgTemplateRepository) ListActive(ctx context.Context, triggerKey string, channel schema.Channel) ([]schema.NotificationTemplate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, trigger_key, channel, subject_or_title, body, is_active, updated_at
		FROM notification_templates
		WHERE trigger_key = $1 AND channel = $2 AND is_active
		ORDER BY updated_at DESC, id DESC
	`, triggerKey, string(channel))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.NotificationTemplate
	for rows.Next() {
		var t schema.NotificationTemplate
		if err := rows.Scan(&t.ID, &t.TriggerKey, &t.Channel, &t.SubjectOrTitle, &t.Body, &t.IsActive, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PgTemplateRepository) Upsert(ctx context.Context, t schema.NotificationTemplate) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_templates (id, trigger_key, channel, subject_or_title, body, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET trigger_key = EXCLUDED.trigger_key,
		              channel = EXCLUDED.channel,
		              subject_or_title = EXCLUDED.subject_or_title,
		              body = EXCLUDED.body,
		              is_active = EXCLUDED.is_active,
		              updated_at = EXCLUDED.updated_at
	`, t.ID, t.TriggerKey, string(t.Channel), t.SubjectOrTitle, t.Body, t.IsActive, t.UpdatedAt)
	return err
}
