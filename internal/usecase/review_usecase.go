package usecase

import (
	"context"
	"math"
	"strings"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
	"snackswap/pkg/logger"
)

const (
	receivedReviewsLimit = 50
	writtenReviewsLimit  = 50
)

type ReviewUseCase struct {
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
	offerRepo  repository.OfferRepository
	settings   Settings
}

func NewReviewUseCase(
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	offerRepo repository.OfferRepository,
	settings Settings,
) *ReviewUseCase {
	return &ReviewUseCase{
		reviewRepo: reviewRepo,
		userRepo:   userRepo,
		offerRepo:  offerRepo,
		settings:   settings,
	}
}

type CreateReviewInput struct {
	RevieweeID string
	ListingID  string
	OfferID    string
	Rating     int
	Comment    string
}

// CreateReview records one review per reviewer, reviewee and listing. The two
// users must share an accepted offer on the listing.
func (uc *ReviewUseCase) CreateReview(ctx context.Context, reviewerID string, input CreateReviewInput) (*entity.Review, error) {
	revieweeID := strings.TrimSpace(input.RevieweeID)
	listingID := strings.TrimSpace(input.ListingID)
	if !identity.ValidID(revieweeID) || !identity.ValidID(listingID) {
		return nil, errors.BadRequest("revieweeId and listingId are required", nil)
	}
	if revieweeID == reviewerID {
		return nil, errors.BadRequest("You cannot review yourself", nil)
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, errors.BadRequest("rating must be between 1 and 5", nil)
	}
	comment := strings.TrimSpace(input.Comment)
	if len([]rune(comment)) > entity.MaxReviewCommentLength {
		return nil, errors.BadRequest("comment is too long", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	eligible, err := uc.offerRepo.HasAccepted(sctx, listingID, reviewerID, revieweeID)
	cancel()
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, errors.Forbidden("You can only review someone you completed an accepted offer with", nil)
	}

	review := &entity.Review{
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		ListingID:  listingID,
		OfferID:    strings.TrimSpace(input.OfferID),
		Rating:     input.Rating,
		Comment:    comment,
	}

	sctx, cancel = uc.settings.storeContext(ctx)
	err = uc.reviewRepo.Create(sctx, review)
	cancel()
	if err != nil {
		return nil, err
	}

	if err := uc.updateUserRating(ctx, revieweeID); err != nil {
		logger.Warn("Failed to update rating: userID=%s, error=%v", revieweeID, err)
	}
	return review, nil
}

// updateUserRating recomputes the aggregate from every review the user
// received.
func (uc *ReviewUseCase) updateUserRating(ctx context.Context, userID string) error {
	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()

	reviews, err := uc.reviewRepo.ListByReviewee(sctx, userID, 0)
	if err != nil {
		return err
	}
	avg, count := RatingAggregate(reviews)
	return uc.userRepo.UpdateRating(sctx, userID, avg, count)
}

// RatingAggregate returns the mean rating rounded to one decimal and the
// number of reviews.
func RatingAggregate(reviews []*entity.Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return math.Round(avg*10) / 10, len(reviews)
}

func (uc *ReviewUseCase) ListReceived(ctx context.Context, userID string) ([]*entity.Review, error) {
	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	return nonNilReviews(uc.reviewRepo.ListByReviewee(sctx, userID, receivedReviewsLimit))
}

func (uc *ReviewUseCase) ListWritten(ctx context.Context, userID string) ([]*entity.Review, error) {
	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	return nonNilReviews(uc.reviewRepo.ListByReviewer(sctx, userID, writtenReviewsLimit))
}

// ListForUser is the public page of reviews a user received.
func (uc *ReviewUseCase) ListForUser(ctx context.Context, userID string, offset, limit int) ([]*entity.Review, error) {
	userID = strings.TrimSpace(userID)
	if !identity.ValidID(userID) {
		return nil, errors.BadRequest("Invalid user id", nil)
	}

	sctx, cancel := uc.settings.storeContext(ctx)
	defer cancel()
	reviews, err := uc.reviewRepo.ListByReviewee(sctx, userID, offset+limit)
	if err != nil {
		return nil, err
	}
	if offset >= len(reviews) {
		return []*entity.Review{}, nil
	}
	return reviews[offset:], nil
}

func nonNilReviews(reviews []*entity.Review, err error) ([]*entity.Review, error) {
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []*entity.Review{}
	}
	return reviews, nil
}
