package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snackswap/internal/domain/entity"
	"snackswap/pkg/errors"
)

// acceptedDeal sets up alice's listing with an accepted offer from bob.
func acceptedDeal(t *testing.T, f *fixture) (*entity.Listing, *entity.Offer) {
	t.Helper()
	ctx := context.Background()
	f.user(t, "alice", "Alice")
	f.user(t, "bob", "Bob")
	listing := f.listing(t, "alice", "Sourdough")
	offer, err := f.offers.Create(ctx, "bob", CreateOfferInput{ListingID: listing.ID})
	require.NoError(t, err)
	offer, err = f.offers.Transition(ctx, offer.ID, "alice", "accept")
	require.NoError(t, err)
	return listing, offer
}

func TestCreateReview_RequiresAcceptedOffer(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Crackers")
	_, err := f.offers.Create(ctx, "bob", CreateOfferInput{ListingID: listing.ID})
	require.NoError(t, err)

	_, err = f.reviews.CreateReview(ctx, "bob", CreateReviewInput{RevieweeID: "alice", ListingID: listing.ID, Rating: 5})
	assert.True(t, errors.Is(err, errors.CodeForbidden), "a pending offer is not enough")
}

func TestCreateReview_BothSidesAndAggregate(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing, offer := acceptedDeal(t, f)

	review, err := f.reviews.CreateReview(ctx, "bob", CreateReviewInput{
		RevieweeID: "alice",
		ListingID:  listing.ID,
		OfferID:    offer.ID,
		Rating:     4,
		Comment:    "  tasty  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "tasty", review.Comment)
	assert.NotEmpty(t, review.ID)

	_, err = f.reviews.CreateReview(ctx, "alice", CreateReviewInput{RevieweeID: "bob", ListingID: listing.ID, Rating: 5})
	require.NoError(t, err)

	alice, err := f.users.GetUserByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4.0, alice.RatingAvg)
	assert.Equal(t, 1, alice.RatingCount)

	_, err = f.reviews.CreateReview(ctx, "bob", CreateReviewInput{RevieweeID: "alice", ListingID: listing.ID, Rating: 1})
	assert.True(t, errors.Is(err, errors.CodeConflict), "one review per listing")

	received, err := f.reviews.ListReceived(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, received, 1)
	written, err := f.reviews.ListWritten(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "bob", written[0].RevieweeID)
}

func TestCreateReview_Validation(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing, _ := acceptedDeal(t, f)

	tests := []struct {
		name  string
		input CreateReviewInput
	}{
		{"self review", CreateReviewInput{RevieweeID: "bob", ListingID: listing.ID, Rating: 5}},
		{"rating too low", CreateReviewInput{RevieweeID: "alice", ListingID: listing.ID, Rating: 0}},
		{"rating too high", CreateReviewInput{RevieweeID: "alice", ListingID: listing.ID, Rating: 6}},
		{"missing listing", CreateReviewInput{RevieweeID: "alice", Rating: 3}},
		{"long comment", CreateReviewInput{RevieweeID: "alice", ListingID: listing.ID, Rating: 3, Comment: strings.Repeat("x", entity.MaxReviewCommentLength+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reviews.CreateReview(ctx, "bob", tt.input)
			assert.True(t, errors.Is(err, errors.CodeBadRequest), "got %v", err)
		})
	}
}

func TestRatingAggregate(t *testing.T) {
	avg, count := RatingAggregate(nil)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	reviews := []*entity.Review{{Rating: 4}, {Rating: 5}, {Rating: 5}}
	avg, count = RatingAggregate(reviews)
	assert.Equal(t, 4.7, avg)
	assert.Equal(t, 3, count)
}

func TestListForUser_Pages(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing, _ := acceptedDeal(t, f)

	_, err := f.reviews.CreateReview(ctx, "bob", CreateReviewInput{RevieweeID: "alice", ListingID: listing.ID, Rating: 5})
	require.NoError(t, err)

	page, err := f.reviews.ListForUser(ctx, "alice", 0, 20)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = f.reviews.ListForUser(ctx, "alice", 20, 20)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	_, err = f.reviews.ListForUser(ctx, "", 0, 20)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestListingSetStatus_OwnerOnly(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()
	listing := f.listing(t, "alice", "Muffins")
	assert.Equal(t, entity.ListingAvailable, listing.Status)

	_, err := f.listings.SetStatus(ctx, listing.ID, "bob", "closed")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.listings.SetStatus(ctx, listing.ID, "alice", "eaten")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	closed, err := f.listings.SetStatus(ctx, listing.ID, "alice", "closed")
	require.NoError(t, err)
	assert.Equal(t, entity.ListingClosed, closed.Status)
}

func TestListingCreate_Cleans(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()

	_, err := f.listings.Create(ctx, "alice", CreateListingInput{Title: "   "})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	l, err := f.listings.Create(ctx, "alice", CreateListingInput{
		Title:     " Dates ",
		Tags:      []string{" sweet ", "", "vegan"},
		Allergies: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dates", l.Title)
	assert.Equal(t, 1, l.Quantity)
	assert.Equal(t, []string{"sweet", "vegan"}, l.Tags)
	assert.NotNil(t, l.Allergies)
}

func TestEnsureProfile_KeepsRating(t *testing.T) {
	f := newFixture(t, Settings{})
	ctx := context.Background()

	u, err := f.users.EnsureProfile(ctx, "alice", " Alice ", "ALICE@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)

	require.NoError(t, f.repos.Users.UpdateRating(ctx, "alice", 4.5, 2))
	u, err = f.users.EnsureProfile(ctx, "alice", "Alice B", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.Name)
	assert.Equal(t, 4.5, u.RatingAvg)

	_, err = f.users.EnsureProfile(ctx, " ", "", "")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}
