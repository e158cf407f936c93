package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snackswap/internal/domain/entity"
	"snackswap/pkg/errors"
)

// openTestFirestore connects to the emulator named by FIRESTORE_EMULATOR_HOST.
// Every test uses fresh ids, so no cleanup is needed between runs.
func openTestFirestore(t *testing.T) *firestore.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}

	client, err := firestore.NewClient(context.Background(), "snackswap-test")
	require.NoError(t, err, "create firestore client")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFirestoreThread_CreateConflictsAndKeepsNewestPreview(t *testing.T) {
	client := openTestFirestore(t)
	ctx := context.Background()
	repo := NewFirestoreThreadRepository(client)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	thread := &entity.Thread{
		ID:            uuid.New().String(),
		ListingID:     uuid.New().String(),
		Participants:  []string{"alice", "bob"},
		LastMessageAt: &at,
	}
	require.NoError(t, repo.Create(ctx, thread))

	err := repo.Create(ctx, &entity.Thread{ID: thread.ID, ListingID: thread.ListingID, Participants: []string{"alice", "bob"}})
	assert.True(t, errors.Is(err, errors.CodeConflict), "got %v", err)

	require.NoError(t, repo.TouchLastMessage(ctx, thread.ID, at.Add(time.Minute), "second"))
	require.NoError(t, repo.TouchLastMessage(ctx, thread.ID, at.Add(30*time.Second), "first"))

	got, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(at.Add(time.Minute)))
	assert.Equal(t, "second", got.LastMessageSnippet)
}

func TestFirestoreOffer_PendingSlotAndAccept(t *testing.T) {
	client := openTestFirestore(t)
	ctx := context.Background()
	offers := NewFirestoreOfferRepository(client)
	listings := NewFirestoreListingRepository(client)

	listing := &entity.Listing{OwnerID: "alice", Title: "Mochi", Quantity: 1}
	require.NoError(t, listings.Create(ctx, listing))

	offer := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	require.NoError(t, offers.Create(ctx, offer))

	dup := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	assert.True(t, errors.Is(offers.Create(ctx, dup), errors.CodeConflict))

	// A refused decision leaves both documents untouched.
	_, err := offers.Transition(ctx, offer.ID, func(current *entity.Offer) (entity.OfferTransition, error) {
		return current.Decide(entity.OfferActionAccept, "bob")
	})
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	l, err := listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingAvailable, l.Status)

	_, err = offers.Transition(ctx, offer.ID, func(current *entity.Offer) (entity.OfferTransition, error) {
		return current.Decide(entity.OfferActionAccept, "alice")
	})
	require.NoError(t, err)

	stored, err := offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, stored.Status)
	l, err = listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingReserved, l.Status)

	again := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	assert.NoError(t, offers.Create(ctx, again), "the pending slot is released on accept")
}
