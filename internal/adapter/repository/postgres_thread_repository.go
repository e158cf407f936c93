package repository

import (
	"context"
	"database/sql"
	"time"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

type postgresThreadRepository struct {
	db *sql.DB
}

func NewPostgresThreadRepository(db *sql.DB) repository.ThreadRepository {
	return &postgresThreadRepository{db: db}
}

const selectThreads = `
	SELECT t.id, t.listing_id, t.participant_a, t.participant_b, t.last_message_at,
		t.last_message_snippet, t.created_at, c.user_id, c.read_at
	FROM threads t
	LEFT JOIN thread_read_cursors c ON c.thread_id = t.id
`

// scanThreads folds the joined cursor rows back into one thread per id,
// preserving first-seen order.
func scanThreads(rows *sql.Rows) ([]*entity.Thread, error) {
	defer rows.Close()

	byID := make(map[string]*entity.Thread)
	var out []*entity.Thread
	for rows.Next() {
		var (
			t             entity.Thread
			a, b          string
			lastMessageAt sql.NullTime
			cursorUser    sql.NullString
			cursorAt      sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.ListingID, &a, &b, &lastMessageAt, &t.LastMessageSnippet, &t.CreatedAt, &cursorUser, &cursorAt); err != nil {
			return nil, err
		}

		thread, ok := byID[t.ID]
		if !ok {
			t.Participants = []string{a, b}
			t.ReadCursor = make(map[string]time.Time)
			if lastMessageAt.Valid {
				at := lastMessageAt.Time
				t.LastMessageAt = &at
			}
			thread = &t
			byID[t.ID] = thread
			out = append(out, thread)
		}
		if cursorUser.Valid && cursorAt.Valid {
			thread.ReadCursor[cursorUser.String] = cursorAt.Time
		}
	}
	return out, rows.Err()
}

func (r *postgresThreadRepository) Create(ctx context.Context, thread *entity.Thread) error {
	members := identity.Resolve(thread)
	if len(members) != 2 {
		return errors.BadRequest("Thread needs two distinct participants", nil)
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now()
	}
	var lastMessageAt sql.NullTime
	if thread.LastMessageAt != nil {
		lastMessageAt = sql.NullTime{Time: *thread.LastMessageAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO threads (id, listing_id, participant_a, participant_b, last_message_at, last_message_snippet, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`, thread.ID, thread.ListingID, members[0], members[1], lastMessageAt, thread.LastMessageSnippet, thread.CreatedAt)
	if err != nil {
		return translatePostgresError(err, "Thread", "create thread", "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Conflict("Thread already exists")
	}
	return nil
}

func (r *postgresThreadRepository) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	rows, err := r.db.QueryContext(ctx, selectThreads+` WHERE t.id = $1`, id)
	if err != nil {
		return nil, translatePostgresError(err, "Thread", "get thread", "")
	}
	threads, err := scanThreads(rows)
	if err != nil {
		return nil, translatePostgresError(err, "Thread", "get thread", "")
	}
	if len(threads) == 0 {
		return nil, errors.NotFound("Thread", nil)
	}
	return threads[0], nil
}

func (r *postgresThreadRepository) FindByListingAndPair(ctx context.Context, listingID string, pair [2]string) (*entity.Thread, error) {
	rows, err := r.db.QueryContext(ctx, selectThreads+`
		WHERE t.listing_id = $1 AND t.participant_a = $2 AND t.participant_b = $3
	`, listingID, pair[0], pair[1])
	if err != nil {
		return nil, translatePostgresError(err, "Thread", "find thread", "")
	}
	threads, err := scanThreads(rows)
	if err != nil {
		return nil, translatePostgresError(err, "Thread", "find thread", "")
	}
	if len(threads) == 0 {
		return nil, errors.NotFound("Thread", nil)
	}
	return threads[0], nil
}

func (r *postgresThreadRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Thread, error) {
	rows, err := r.db.QueryContext(ctx, selectThreads+`
		WHERE t.participant_a = $1 OR t.participant_b = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, translatePostgresError(err, "Thread", "list threads", "")
	}
	threads, err := scanThreads(rows)
	if err != nil {
		return nil, translatePostgresError(err, "Thread", "list threads", "")
	}
	return threads, nil
}

// SaveParticipants rewrites the participant columns. Rows in this store are
// always written in the current shape, so this only matters for imports.
func (r *postgresThreadRepository) SaveParticipants(ctx context.Context, thread *entity.Thread) error {
	members := identity.Resolve(thread)
	if len(members) != 2 {
		return errors.BadRequest("Thread needs two distinct participants", nil)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE threads SET participant_a = $2, participant_b = $3 WHERE id = $1
	`, thread.ID, members[0], members[1])
	return translatePostgresError(err, "Thread", "migrate thread participants", "")
}

func (r *postgresThreadRepository) MarkRead(ctx context.Context, threadID, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO thread_read_cursors (thread_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thread_id, user_id) DO UPDATE SET read_at = EXCLUDED.read_at
	`, threadID, userID, at)
	return translatePostgresError(err, "Thread", "mark thread read", "")
}

// TouchLastMessage never moves the preview backwards: an older message that
// lands late leaves the newer preview in place.
func (r *postgresThreadRepository) TouchLastMessage(ctx context.Context, threadID string, at time.Time, snippet string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE threads SET
			last_message_snippet = CASE
				WHEN last_message_at IS NULL OR last_message_at <= $2 THEN $3
				ELSE last_message_snippet
			END,
			last_message_at = GREATEST(COALESCE(last_message_at, $2), $2)
		WHERE id = $1
	`, threadID, at, snippet)
	if err != nil {
		return translatePostgresError(err, "Thread", "update thread", "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("Thread", nil)
	}
	return nil
}
