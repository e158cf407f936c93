package repository

import (
	"context"
	"time"

	"snackswap/internal/domain/entity"
)

type ThreadRepository interface {
	// Create stores a new thread under thread.ID. It fails with a CONFLICT
	// error when a thread with that id, or for the same listing and
	// participant pair, already exists.
	Create(ctx context.Context, thread *entity.Thread) error
	GetByID(ctx context.Context, id string) (*entity.Thread, error)
	// FindByListingAndPair searches every stored participant shape.
	FindByListingAndPair(ctx context.Context, listingID string, pair [2]string) (*entity.Thread, error)
	// ListByParticipant searches every stored participant shape.
	ListByParticipant(ctx context.Context, userID string) ([]*entity.Thread, error)
	// SaveParticipants persists the current participant shape of a migrated
	// legacy record and drops the older list field.
	SaveParticipants(ctx context.Context, thread *entity.Thread) error
	MarkRead(ctx context.Context, threadID, userID string, at time.Time) error
	TouchLastMessage(ctx context.Context, threadID string, at time.Time, snippet string) error
}
