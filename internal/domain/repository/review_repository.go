package repository

import (
	"context"

	"snackswap/internal/domain/entity"
)

type ReviewRepository interface {
	// Create fails with a CONFLICT error when the reviewer already reviewed
	// the reviewee for the listing.
	Create(ctx context.Context, review *entity.Review) error
	// ListByReviewee and ListByReviewer return newest first. limit <= 0
	// returns everything.
	ListByReviewee(ctx context.Context, revieweeID string, limit int) ([]*entity.Review, error)
	ListByReviewer(ctx context.Context, reviewerID string, limit int) ([]*entity.Review, error)
}
