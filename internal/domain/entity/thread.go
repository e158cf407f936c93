package entity

import "time"

// MaxSnippetLength is the number of characters of the latest message kept on
// the thread for list views.
const MaxSnippetLength = 120

// Thread is a two-party conversation scoped to one listing.
type Thread struct {
	ID                 string               `json:"id" firestore:"id"`
	ListingID          string               `json:"listing_id" firestore:"listingId"`
	Participants       []string             `json:"participants" firestore:"participants"`
	LastMessageAt      *time.Time           `json:"last_message_at" firestore:"lastMessageAt"`
	LastMessageSnippet string               `json:"last_message_snippet" firestore:"lastMessageSnippet"`
	ReadCursor         map[string]time.Time `json:"read_cursor" firestore:"readCursor"`
	CreatedAt          time.Time            `json:"created_at" firestore:"createdAt"`

	// Older records stored participants in one of these shapes instead.
	LegacyParticipantIDs []string `json:"-" firestore:"participantsIds,omitempty"`
	LegacyBuyerID        string   `json:"-" firestore:"buyerId,omitempty"`
	LegacySellerID       string   `json:"-" firestore:"sellerId,omitempty"`
}

// LastReadBy returns the read cursor of userID. ok is false when the user has
// never opened the thread.
func (t *Thread) LastReadBy(userID string) (at time.Time, ok bool) {
	if t.ReadCursor == nil {
		return time.Time{}, false
	}
	at, ok = t.ReadCursor[userID]
	return at, ok
}

// Snippet returns the list-view preview for a message body.
func Snippet(content string) string {
	return truncateRunes(content, MaxSnippetLength)
}
