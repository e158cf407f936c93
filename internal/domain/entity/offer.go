package entity

import (
	"time"

	"snackswap/pkg/errors"
)

// MaxOfferNoteLength is the longest note kept on an offer; longer notes are
// cut, not rejected.
const MaxOfferNoteLength = 1000

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferCanceled OfferStatus = "canceled"
)

// Terminal reports whether no further transition is allowed.
func (s OfferStatus) Terminal() bool {
	return s != OfferPending
}

type OfferAction string

const (
	OfferActionAccept OfferAction = "accept"
	OfferActionReject OfferAction = "reject"
	OfferActionCancel OfferAction = "cancel"
)

type Offer struct {
	ID        string      `json:"id" firestore:"id"`
	ListingID string      `json:"listing_id" firestore:"listingId"`
	OwnerID   string      `json:"owner_id" firestore:"ownerId"`
	OfferedBy string      `json:"offered_by" firestore:"offeredBy"`
	Note      string      `json:"note" firestore:"note"`
	Status    OfferStatus `json:"status" firestore:"status"`
	CreatedAt time.Time   `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time   `json:"updated_at" firestore:"updatedAt"`
}

// OfferTransition is the outcome of a decision on a pending offer.
type OfferTransition struct {
	Status OfferStatus
	// ListingStatus is written to the offer's listing in the same atomic
	// step. Empty leaves the listing untouched.
	ListingStatus ListingStatus
}

// Decide checks whether actorID may apply action to the offer in its current
// state and returns the resulting transition. A finished offer is a conflict
// whatever the action; actions match exactly. It does not mutate the offer.
func (o *Offer) Decide(action OfferAction, actorID string) (OfferTransition, error) {
	if o.Status.Terminal() {
		return OfferTransition{}, errors.Conflict("Only pending offers can be modified")
	}

	switch action {
	case OfferActionAccept, OfferActionReject:
		if actorID != o.OwnerID {
			return OfferTransition{}, errors.Forbidden("Only the listing owner can perform this action", nil)
		}
		if action == OfferActionAccept {
			return OfferTransition{Status: OfferAccepted, ListingStatus: ListingReserved}, nil
		}
		return OfferTransition{Status: OfferRejected}, nil
	case OfferActionCancel:
		if actorID != o.OfferedBy {
			return OfferTransition{}, errors.Forbidden("Only the sender can cancel this offer", nil)
		}
		return OfferTransition{Status: OfferCanceled}, nil
	}
	return OfferTransition{}, errors.BadRequest("Unknown action", nil)
}

// Apply records a transition decided by Decide.
func (o *Offer) Apply(t OfferTransition, at time.Time) {
	o.Status = t.Status
	o.UpdatedAt = at
}

// TruncateNote cuts a note to MaxOfferNoteLength characters.
func TruncateNote(note string) string {
	return truncateRunes(note, MaxOfferNoteLength)
}
