package repository

import (
	"context"
	"database/sql"
	"time"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
)

type postgresReviewRepository struct {
	db *sql.DB
}

func NewPostgresReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &postgresReviewRepository{db: db}
}

func (r *postgresReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	review.ID = identity.ReviewID(review.ReviewerID, review.RevieweeID, review.ListingID)
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (id, reviewer_id, reviewee_id, listing_id, offer_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, review.ID, review.ReviewerID, review.RevieweeID, review.ListingID, review.OfferID, review.Rating, review.Comment, review.CreatedAt)
	return translatePostgresError(err, "Review", "create review", "You already reviewed this user for this listing")
}

func (r *postgresReviewRepository) list(ctx context.Context, column, userID string, limit int) ([]*entity.Review, error) {
	query := `
		SELECT id, reviewer_id, reviewee_id, listing_id, offer_id, rating, comment, created_at
		FROM reviews WHERE ` + column + ` = $1
		ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePostgresError(err, "Review", "list reviews", "")
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var rv entity.Review
		if err := rows.Scan(&rv.ID, &rv.ReviewerID, &rv.RevieweeID, &rv.ListingID, &rv.OfferID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, translatePostgresError(err, "Review", "list reviews", "")
		}
		reviews = append(reviews, &rv)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePostgresError(err, "Review", "list reviews", "")
	}
	return reviews, nil
}

func (r *postgresReviewRepository) ListByReviewee(ctx context.Context, revieweeID string, limit int) ([]*entity.Review, error) {
	return r.list(ctx, "reviewee_id", revieweeID, limit)
}

func (r *postgresReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, limit int) ([]*entity.Review, error) {
	return r.list(ctx, "reviewer_id", reviewerID, limit)
}
