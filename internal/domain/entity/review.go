package entity

import (
	"time"
)

const MaxReviewCommentLength = 500

// Review is left by one side of an accepted offer about the other side.
// At most one review exists per (reviewer, reviewee, listing).
type Review struct {
	ID         string    `json:"id" firestore:"id"`
	ReviewerID string    `json:"reviewer_id" firestore:"reviewerId"`
	RevieweeID string    `json:"reviewee_id" firestore:"revieweeId"`
	ListingID  string    `json:"listing_id" firestore:"listingId"`
	OfferID    string    `json:"offer_id,omitempty" firestore:"offerId,omitempty"`
	Rating     int       `json:"rating" firestore:"rating"`
	Comment    string    `json:"comment" firestore:"comment"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
