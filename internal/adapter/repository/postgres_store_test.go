package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snackswap/internal/domain/entity"
	"snackswap/pkg/errors"
)

// openTestPostgres connects to TEST_DATABASE_URL, applies the embedded
// migrations and empties every table. Tests are skipped without a database.
func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := OpenPostgres(ctx, databaseURL)
	require.NoError(t, err, "open database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, ApplyMigrations(ctx, db), "apply migrations")
	_, err = db.ExecContext(ctx, `
		TRUNCATE users, listings, threads, thread_read_cursors, messages, offers, reviews CASCADE
	`)
	require.NoError(t, err, "clean tables")
	return db
}

func createPostgresListing(t *testing.T, db *sql.DB, ownerID string) *entity.Listing {
	t.Helper()
	listing := &entity.Listing{OwnerID: ownerID, Title: "Stroopwafels", Quantity: 1}
	require.NoError(t, NewPostgresListingRepository(db).Create(context.Background(), listing))
	return listing
}

func TestPostgresThreadCreate_StoresLastMessageAt(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := NewPostgresThreadRepository(db)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	thread := &entity.Thread{
		ID:                 uuid.New().String(),
		ListingID:          "listing-1",
		Participants:       []string{"bob", "alice"},
		LastMessageAt:      &at,
		LastMessageSnippet: "hello",
	}
	require.NoError(t, repo.Create(ctx, thread))

	got, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(at))
	assert.Equal(t, "hello", got.LastMessageSnippet)
	assert.Equal(t, []string{"alice", "bob"}, got.Participants)
}

func TestPostgresThreadCreate_ConcurrentCallsConflict(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := NewPostgresThreadRepository(db)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		ids[i] = uuid.New().String()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &entity.Thread{
				ID:           ids[i],
				ListingID:    "listing-1",
				Participants: []string{"alice", "bob"},
			})
		}(i)
	}
	wg.Wait()

	winner := ""
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winner, "only one create may succeed")
			winner = ids[i]
			continue
		}
		assert.True(t, errors.Is(err, errors.CodeConflict), "caller %d: %v", i, err)
	}
	require.NotEmpty(t, winner)

	found, err := repo.FindByListingAndPair(ctx, "listing-1", [2]string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, winner, found.ID)
}

func TestPostgresThread_TouchLastMessageKeepsNewest(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := NewPostgresThreadRepository(db)

	thread := &entity.Thread{ID: uuid.New().String(), ListingID: "listing-1", Participants: []string{"alice", "bob"}}
	require.NoError(t, repo.Create(ctx, thread))

	newer := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastMessage(ctx, thread.ID, newer, "second"))
	require.NoError(t, repo.TouchLastMessage(ctx, thread.ID, newer.Add(-time.Minute), "first"))

	got, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(newer))
	assert.Equal(t, "second", got.LastMessageSnippet)

	err = repo.TouchLastMessage(ctx, "missing", newer, "x")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestPostgresOfferCreate_SecondPendingOfferConflicts(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := NewPostgresOfferRepository(db)
	listing := createPostgresListing(t, db, "alice")

	first := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	require.NoError(t, repo.Create(ctx, first))

	// The partial unique index is what rejects the duplicate.
	_, err := db.ExecContext(ctx, `
		INSERT INTO offers (id, listing_id, owner_id, offered_by, status)
		VALUES ($1, $2, 'alice', 'bob', 'pending')
	`, uuid.New().String(), listing.ID)
	var pgErr *pgconn.PgError
	require.True(t, stderrors.As(err, &pgErr), "expected PostgreSQL error, got: %v", err)
	assert.Equal(t, pgUniqueViolation, pgErr.SQLState())

	second := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	err = repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	other := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "carol", Status: entity.OfferPending}
	assert.NoError(t, repo.Create(ctx, other), "other senders are unaffected")
}

func TestPostgresOfferTransition_AcceptReservesListing(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := NewPostgresOfferRepository(db)
	listings := NewPostgresListingRepository(db)
	listing := createPostgresListing(t, db, "alice")

	offer := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	require.NoError(t, repo.Create(ctx, offer))

	got, err := repo.Transition(ctx, offer.ID, func(current *entity.Offer) (entity.OfferTransition, error) {
		return current.Decide(entity.OfferActionAccept, "alice")
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, got.Status)

	stored, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferAccepted, stored.Status)

	l, err := listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingReserved, l.Status)

	// Once accepted, the sender may open a new pending offer.
	again := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	assert.NoError(t, repo.Create(ctx, again))
}

func TestPostgresOfferTransition_FailedDecisionWritesNothing(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	repo := NewPostgresOfferRepository(db)
	listings := NewPostgresListingRepository(db)
	listing := createPostgresListing(t, db, "alice")

	offer := &entity.Offer{ListingID: listing.ID, OwnerID: "alice", OfferedBy: "bob", Status: entity.OfferPending}
	require.NoError(t, repo.Create(ctx, offer))

	_, err := repo.Transition(ctx, offer.ID, func(current *entity.Offer) (entity.OfferTransition, error) {
		return current.Decide(entity.OfferActionAccept, "bob")
	})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = repo.Transition(ctx, "missing", func(current *entity.Offer) (entity.OfferTransition, error) {
		t.Fatal("decide must not run for a missing offer")
		return entity.OfferTransition{}, nil
	})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	stored, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferPending, stored.Status)

	l, err := listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingAvailable, l.Status)
}
