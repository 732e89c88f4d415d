package whatsapp

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) GetOrCreateConversation(ctx context.Context, phone string) (Conversation, error) {
	// upsert по номеру: первое сообщение заводит запись, thread_id пустой
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, phone)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, phone, COALESCE(thread_id, ''), paused, tags
	`, uuid.NewString(), phone)

	var conv Conversation
	var tags pq.StringArray
	if err := row.Scan(&conv.ID, &conv.Phone, &conv.ThreadID, &conv.Paused, &tags); err != nil {
		return Conversation{}, err
	}
	conv.Tags = tags
	return conv, nil
}

func (r *repo) SetThreadID(ctx context.Context, conversationID, threadID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET thread_id = $2 WHERE id = $1
	`, conversationID, threadID)
	return err
}

func (r *repo) SaveMessage(ctx context.Context, msg *Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender, text, media_url)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`,
		msg.ConversationID,
		string(msg.Sender),
		msg.Text,
		msg.MediaURL,
	)
	return err
}

func (r *repo) UpdateTags(ctx context.Context, conversationID string, tags []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET tags = $2 WHERE id = $1
	`, conversationID, pq.Array(tags))
	return err
}

func (r *repo) ListAudience(ctx context.Context, tag string) ([]string, error) {
	query := `SELECT phone FROM conversations WHERE NOT paused`
	args := []any{}
	if tag != "" {
		query += ` AND $1 = ANY(tags)`
		args = append(args, tag)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, err
		}
		phones = append(phones, phone)
	}

	return phones, rows.Err()
}
