package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

const (
	offersCollection     = "offers"
	offerLocksCollection = "offer_locks"
	listingsCollection   = "listings"
)

type firestoreOfferRepository struct {
	client *firestore.Client
}

func NewFirestoreOfferRepository(client *firestore.Client) repository.OfferRepository {
	return &firestoreOfferRepository{
		client: client,
	}
}

func (r *firestoreOfferRepository) lockRef(listingID, senderID string) *firestore.DocumentRef {
	return r.client.Collection(offerLocksCollection).Doc(identity.PendingOfferKey(listingID, senderID))
}

// Create writes the offer together with its pending-slot lock document. The
// lock id is derived from (listing, sender), so a second pending offer
// collides with the first inside the transaction.
func (r *firestoreOfferRepository) Create(ctx context.Context, offer *entity.Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	offer.UpdatedAt = offer.CreatedAt

	offerRef := r.client.Collection(offersCollection).Doc(offer.ID)
	lockRef := r.lockRef(offer.ListingID, offer.OfferedBy)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if offer.Status == entity.OfferPending {
			snap, err := tx.Get(lockRef)
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
			if snap != nil && snap.Exists() {
				return errors.Conflict("You already have a pending offer for this listing")
			}
			if err := tx.Create(lockRef, map[string]interface{}{
				"offerId":   offer.ID,
				"listingId": offer.ListingID,
				"offeredBy": offer.OfferedBy,
				"createdAt": offer.CreatedAt,
			}); err != nil {
				return err
			}
		}
		return tx.Create(offerRef, offer)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("You already have a pending offer for this listing")
		}
		return translateFirestoreError(err, "Offer", "create offer")
	}
	return nil
}

func (r *firestoreOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	doc, err := r.client.Collection(offersCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreError(err, "Offer", "get offer")
	}

	var offer entity.Offer
	if err := doc.DataTo(&offer); err != nil {
		return nil, errors.Internal("Failed to parse offer data", err)
	}
	offer.ID = doc.Ref.ID
	return &offer, nil
}

func (r *firestoreOfferRepository) query(ctx context.Context, query firestore.Query) ([]*entity.Offer, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, translateFirestoreError(err, "Offer", "list offers")
	}

	offers := make([]*entity.Offer, 0, len(docs))
	for _, doc := range docs {
		var offer entity.Offer
		if err := doc.DataTo(&offer); err != nil {
			continue // Skip malformed documents
		}
		offer.ID = doc.Ref.ID
		offers = append(offers, &offer)
	}
	return offers, nil
}

func (r *firestoreOfferRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Offer, error) {
	return r.query(ctx, r.client.Collection(offersCollection).
		Where("ownerId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc))
}

func (r *firestoreOfferRepository) ListBySender(ctx context.Context, senderID string) ([]*entity.Offer, error) {
	return r.query(ctx, r.client.Collection(offersCollection).
		Where("offeredBy", "==", senderID).
		OrderBy("createdAt", firestore.Desc))
}

func (r *firestoreOfferRepository) CountPendingByOwner(ctx context.Context, ownerID string) (int, error) {
	docs, err := r.client.Collection(offersCollection).
		Where("ownerId", "==", ownerID).
		Where("status", "==", string(entity.OfferPending)).
		Select().
		Documents(ctx).GetAll()
	if err != nil {
		return 0, translateFirestoreError(err, "Offer", "count pending offers")
	}
	return len(docs), nil
}

// Transition runs the decision and both writes in one Firestore transaction,
// so the offer is never observed accepted while its listing is available.
func (r *firestoreOfferRepository) Transition(ctx context.Context, offerID string, decide repository.OfferDecision) (*entity.Offer, error) {
	offerRef := r.client.Collection(offersCollection).Doc(offerID)

	var result *entity.Offer
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(offerRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Offer", err)
			}
			return err
		}

		var current entity.Offer
		if err := snap.DataTo(&current); err != nil {
			return errors.Internal("Failed to parse offer data", err)
		}
		current.ID = snap.Ref.ID
		wasPending := current.Status == entity.OfferPending

		transition, err := decide(&current)
		if err != nil {
			return err
		}

		// All reads must happen before the first write.
		var listingRef *firestore.DocumentRef
		if transition.ListingStatus != "" {
			listingRef = r.client.Collection(listingsCollection).Doc(current.ListingID)
			if _, err := tx.Get(listingRef); err != nil {
				if status.Code(err) == codes.NotFound {
					return errors.NotFound("Listing", err)
				}
				return err
			}
		}

		now := time.Now()
		current.Apply(transition, now)

		if err := tx.Update(offerRef, []firestore.Update{
			{Path: "status", Value: string(current.Status)},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if listingRef != nil {
			if err := tx.Update(listingRef, []firestore.Update{
				{Path: "status", Value: string(transition.ListingStatus)},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		if wasPending && current.Status != entity.OfferPending {
			if err := tx.Delete(r.lockRef(current.ListingID, current.OfferedBy)); err != nil {
				return err
			}
		}

		result = &current
		return nil
	})
	if err != nil {
		return nil, translateFirestoreError(err, "Offer", "update offer")
	}
	return result, nil
}

func (r *firestoreOfferRepository) HasAccepted(ctx context.Context, listingID, userA, userB string) (bool, error) {
	offers, err := r.query(ctx, r.client.Collection(offersCollection).
		Where("listingId", "==", listingID).
		Where("status", "==", string(entity.OfferAccepted)))
	if err != nil {
		return false, err
	}
	for _, o := range offers {
		if (o.OwnerID == userA && o.OfferedBy == userB) || (o.OwnerID == userB && o.OfferedBy == userA) {
			return true, nil
		}
	}
	return false, nil
}
