package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

const reviewsCollection = "reviews"

type firestoreReviewRepository struct {
	client *firestore.Client
}

func NewFirestoreReviewRepository(client *firestore.Client) repository.ReviewRepository {
	return &firestoreReviewRepository{
		client: client,
	}
}

// Create stores the review under an id derived from (reviewer, reviewee,
// listing), so a second review for the same tuple fails to create.
func (r *firestoreReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	review.ID = identity.ReviewID(review.ReviewerID, review.RevieweeID, review.ListingID)
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}

	_, err := r.client.Collection(reviewsCollection).Doc(review.ID).Create(ctx, review)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("You already reviewed this user for this listing")
		}
		return translateFirestoreError(err, "Review", "create review")
	}
	return nil
}

func (r *firestoreReviewRepository) list(ctx context.Context, field, userID string, limit int) ([]*entity.Review, error) {
	query := r.client.Collection(reviewsCollection).
		Where(field, "==", userID).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, translateFirestoreError(err, "Review", "list reviews")
	}

	reviews := make([]*entity.Review, 0, len(docs))
	for _, doc := range docs {
		var review entity.Review
		if err := doc.DataTo(&review); err != nil {
			continue
		}
		review.ID = doc.Ref.ID
		reviews = append(reviews, &review)
	}
	return reviews, nil
}

func (r *firestoreReviewRepository) ListByReviewee(ctx context.Context, revieweeID string, limit int) ([]*entity.Review, error) {
	return r.list(ctx, "revieweeId", revieweeID, limit)
}

func (r *firestoreReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, limit int) ([]*entity.Review, error) {
	return r.list(ctx, "reviewerId", reviewerID, limit)
}
