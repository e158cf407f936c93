package repository

import (
	"context"

	"snackswap/internal/domain/entity"
)

// OfferDecision is evaluated by Transition against the offer as read inside
// the store's transaction.
type OfferDecision func(current *entity.Offer) (entity.OfferTransition, error)

type OfferRepository interface {
	// Create fails with a CONFLICT error when the sender already has a
	// pending offer on the listing.
	Create(ctx context.Context, offer *entity.Offer) error
	GetByID(ctx context.Context, id string) (*entity.Offer, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Offer, error)
	ListBySender(ctx context.Context, senderID string) ([]*entity.Offer, error)
	CountPendingByOwner(ctx context.Context, ownerID string) (int, error)
	// Transition reads the offer, asks decide for the outcome and writes the
	// new offer status together with the optional listing status as one
	// atomic unit. Nothing is written when decide fails.
	Transition(ctx context.Context, offerID string, decide OfferDecision) (*entity.Offer, error)
	// HasAccepted reports whether an accepted offer on listingID exists
	// between userA and userB in either role.
	HasAccepted(ctx context.Context, listingID, userA, userB string) (bool, error)
}
