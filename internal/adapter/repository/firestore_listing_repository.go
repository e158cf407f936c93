package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.Status == "" {
		listing.Status = entity.ListingAvailable
	}

	_, err := r.client.Collection(listingsCollection).Doc(listing.ID).Create(ctx, listing)
	if err != nil {
		return translateFirestoreError(err, "Listing", "create listing")
	}
	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection(listingsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreError(err, "Listing", "get listing")
	}

	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing.ID = doc.Ref.ID

	// Older listings store the owner as a reference under "owner".
	if listing.OwnerID == "" {
		listing.OwnerID = firestoreRefID(doc.Data()["owner"])
	}
	if listing.Status == "" {
		listing.Status = entity.ListingAvailable
	}
	return &listing, nil
}

func (r *firestoreListingRepository) SetStatus(ctx context.Context, id string, status entity.ListingStatus) error {
	_, err := r.client.Collection(listingsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		return translateFirestoreError(err, "Listing", "update listing status")
	}
	return nil
}
