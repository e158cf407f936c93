package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
)

type postgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) repository.MessageRepository {
	return &postgresMessageRepository{db: db}
}

func (r *postgresMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.Must(uuid.NewV7()).String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, message.ID, message.ThreadID, message.SenderID, message.Content, message.CreatedAt)
	return translatePostgresError(err, "Message", "create message", "")
}

func (r *postgresMessageRepository) ListByThread(ctx context.Context, threadID string) ([]*entity.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, thread_id, sender_id, content, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC, seq ASC
	`, threadID)
	if err != nil {
		return nil, translatePostgresError(err, "Message", "list messages", "")
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		var m entity.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, translatePostgresError(err, "Message", "list messages", "")
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePostgresError(err, "Message", "list messages", "")
	}
	return messages, nil
}

func (r *postgresMessageRepository) CountUnread(ctx context.Context, threadID, userID string, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE thread_id = $1 AND sender_id <> $2`
	args := []interface{}{threadID, userID}
	if since != nil {
		query += ` AND created_at > $3`
		args = append(args, *since)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, translatePostgresError(err, "Message", "count unread messages", "")
	}
	return count, nil
}
