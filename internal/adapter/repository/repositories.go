package repository

import (
	"context"
	"database/sql"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snackswap/internal/domain/repository"
)

// Repositories bundles the repositories of one storage driver together with
// its health probe and shutdown hook.
type Repositories struct {
	Driver   string
	Threads  repository.ThreadRepository
	Messages repository.MessageRepository
	Offers   repository.OfferRepository
	Listings repository.ListingRepository
	Users    repository.UserRepository
	Reviews  repository.ReviewRepository

	ping  func(ctx context.Context) error
	close func() error
}

func (r *Repositories) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func NewMemoryRepositories(store *MemoryStore) *Repositories {
	return &Repositories{
		Driver:   "memory",
		Threads:  NewMemoryThreadRepository(store),
		Messages: NewMemoryMessageRepository(store),
		Offers:   NewMemoryOfferRepository(store),
		Listings: NewMemoryListingRepository(store),
		Users:    NewMemoryUserRepository(store),
		Reviews:  NewMemoryReviewRepository(store),
		ping:     store.Ping,
	}
}

func NewFirestoreRepositories(client *firestore.Client) *Repositories {
	return &Repositories{
		Driver:   "firestore",
		Threads:  NewFirestoreThreadRepository(client),
		Messages: NewFirestoreMessageRepository(client),
		Offers:   NewFirestoreOfferRepository(client),
		Listings: NewFirestoreListingRepository(client),
		Users:    NewFirestoreUserRepository(client),
		Reviews:  NewFirestoreReviewRepository(client),
		ping: func(ctx context.Context) error {
			// A missing document still proves the backend is reachable.
			_, err := client.Collection(usersCollection).Doc("_health").Get(ctx)
			if err != nil && status.Code(err) != codes.NotFound {
				return translateFirestoreError(err, "Health", "ping")
			}
			return nil
		},
		close: client.Close,
	}
}

func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Driver:   "postgres",
		Threads:  NewPostgresThreadRepository(db),
		Messages: NewPostgresMessageRepository(db),
		Offers:   NewPostgresOfferRepository(db),
		Listings: NewPostgresListingRepository(db),
		Users:    NewPostgresUserRepository(db),
		Reviews:  NewPostgresReviewRepository(db),
		ping:     db.PingContext,
		close:    db.Close,
	}
}
