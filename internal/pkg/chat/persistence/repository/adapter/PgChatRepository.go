package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigpulse/internal/infrastructure/database"
	repository "gigpulse/internal/pkg/chat/persistence/repository/port"
	"gigpulse/internal/pkg/schema"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

const conversationColumns = `
	c.id, c.updated_at, c.typing_user_id, c.typing_started_at,
	COALESCE((SELECT array_agg(p.user_id ORDER BY p.joined_at, p.user_id)
	          FROM conversation_participants p
	          WHERE p.conversation_id = c.id), '{}')`

func scanConversation(row pgx.Row) (schema.Conversation, error) {
	var c schema.Conversation
	err := row.Scan(&c.ID, &c.UpdatedAt, &c.TypingUserID, &c.TypingStartedAt, &c.ParticipantIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.Conversation{}, schema.ErrNotFound
	}
	return c, err
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c schema.Conversation) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"INSERT INTO conversations (id, updated_at) VALUES ($1, $2)",
			c.ID, c.UpdatedAt,
		); err != nil {
			return err
		}
		for _, uid := range c.ParticipantIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (conversation_id, user_id) DO NOTHING
			`, c.ID, uid, c.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgChatRepository) AddParticipant(ctx context.Context, conversationID string, userID string) error {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		SELECT id, $2 FROM conversations WHERE id = $1
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		ok, err := r.IsParticipant(ctx, conversationID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return schema.ErrNotFound
		}
	}
	return nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (schema.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations c WHERE c.id = $1", conversationID))
}

func (r *PgChatRepository) ListConversationsByUser(ctx context.Context, userID string) ([]schema.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		JOIN conversation_participants me ON me.conversation_id = c.id AND me.user_id = $1
		ORDER BY c.updated_at DESC, c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID).Scan(&ok)
	return ok, err
}

func (r *PgChatRepository) ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at, user_id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m schema.Message) (schema.Message, schema.Conversation, error) {
	var conv schema.Conversation
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// The row lock serializes appends to one conversation across nodes.
		var id string
		if err := tx.QueryRow(ctx,
			"SELECT id FROM conversations WHERE id = $1 FOR UPDATE", m.ConversationID,
		).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return schema.ErrNotFound
			}
			return err
		}
		if err := tx.QueryRow(ctx, `
			SELECT GREATEST($2::timestamptz, max(created_at)) FROM messages WHERE conversation_id = $1
		`, m.ConversationID, m.CreatedAt).Scan(&m.CreatedAt); err != nil {
			return err
		}
		m.CreatedAt = m.CreatedAt.UTC()

		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, content, created_at, is_read)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt, m.IsRead); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE conversations
			SET updated_at = GREATEST(updated_at, $2),
			    typing_user_id = CASE WHEN typing_user_id = $3 THEN NULL ELSE typing_user_id END,
			    typing_started_at = CASE WHEN typing_user_id = $3 THEN NULL ELSE typing_started_at END
			WHERE id = $1
		`, m.ConversationID, m.CreatedAt, m.SenderID); err != nil {
			return err
		}
		var err error
		conv, err = scanConversation(tx.QueryRow(ctx,
			"SELECT "+conversationColumns+" FROM conversations c WHERE c.id = $1", m.ConversationID))
		return err
	})
	if err != nil {
		return schema.Message{}, schema.Conversation{}, err
	}
	return m, conv, nil
}

func (r *PgChatRepository) LastMessageAt(ctx context.Context, conversationID string) (*time.Time, error) {
	var ts *time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT max(created_at) FROM messages WHERE conversation_id = $1", conversationID,
	).Scan(&ts)
	return ts, err
}

func (r *PgChatRepository) ListMessages(ctx context.Context, conversationID string, ascending bool) ([]schema.Message, error) {
	order := "ASC"
	if !ascending {
		order = "DESC"
	}
	return r.queryMessages(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, is_read
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at `+order+`, id `+order, conversationID)
}

func (r *PgChatRepository) ListMessagesSince(ctx context.Context, conversationID string, since *time.Time) ([]schema.Message, error) {
	return r.queryMessages(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, is_read
		FROM messages
		WHERE conversation_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at, id
	`, conversationID, since)
}

func (r *PgChatRepository) queryMessages(ctx context.Context, sql string, args ...any) ([]schema.Message, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []schema.Message
	for rows.Next() {
		var m schema.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.IsRead); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgChatRepository) GetReadMarker(ctx context.Context, conversationID string, userID string) (schema.ParticipantReadMarker, error) {
	mk := schema.ParticipantReadMarker{ConversationID: conversationID, UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT last_read_at FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID).Scan(&mk.LastReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.ParticipantReadMarker{}, schema.ErrNotFound
	}
	return mk, err
}

func (r *PgChatRepository) SetReadMarker(ctx context.Context, conversationID string, userID string, at time.Time) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE conversation_participants
			SET last_read_at = GREATEST(COALESCE(last_read_at, $3), $3)
			WHERE conversation_id = $1 AND user_id = $2
		`, conversationID, userID, at)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return schema.ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			UPDATE messages SET is_read = true
			WHERE conversation_id = $1 AND sender_id <> $2 AND created_at <= $3 AND NOT is_read
		`, conversationID, userID, at)
		return err
	})
}

func (r *PgChatRepository) StartTyping(ctx context.Context, conversationID string, userID string, at time.Time) (schema.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, `
		UPDATE conversations c
		SET typing_user_id = $2, typing_started_at = $3
		WHERE c.id = $1
		RETURNING `+conversationColumns, conversationID, userID, at))
}

func (r *PgChatRepository) StopTyping(ctx context.Context, conversationID string, userID string) (schema.Conversation, bool, error) {
	return r.clearTyping(ctx, conversationID, userID, nil)
}

func (r *PgChatRepository) ExpireTyping(ctx context.Context, conversationID string, userID string, cutoff time.Time) (schema.Conversation, bool, error) {
	return r.clearTyping(ctx, conversationID, userID, &cutoff)
}

func (r *PgChatRepository) clearTyping(ctx context.Context, conversationID string, userID string, cutoff *time.Time) (schema.Conversation, bool, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx, `
		UPDATE conversations c
		SET typing_user_id = NULL, typing_started_at = NULL
		WHERE c.id = $1 AND c.typing_user_id = $2
		  AND ($3::timestamptz IS NULL OR c.typing_started_at <= $3)
		RETURNING `+conversationColumns, conversationID, userID, cutoff))
	if errors.Is(err, schema.ErrNotFound) {
		// nothing cleared: either the conversation is missing or someone else types
		conv, err = r.GetConversation(ctx, conversationID)
		return conv, false, err
	}
	return conv, err == nil, err
}
