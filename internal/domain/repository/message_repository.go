package repository

import (
	"context"
	"time"

	"snackswap/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	// ListByThread returns messages oldest first; equal timestamps keep
	// insertion order.
	ListByThread(ctx context.Context, threadID string) ([]*entity.Message, error)
	// CountUnread counts messages not sent by userID and created strictly
	// after since. A nil since counts every such message.
	CountUnread(ctx context.Context, threadID, userID string, since *time.Time) (int, error)
}
