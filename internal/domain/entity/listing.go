package entity

import "time"

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingReserved  ListingStatus = "reserved"
	ListingClosed    ListingStatus = "closed"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingAvailable, ListingReserved, ListingClosed:
		return true
	}
	return false
}

type Listing struct {
	ID          string        `json:"id" firestore:"id"`
	OwnerID     string        `json:"owner_id" firestore:"ownerId"`
	Title       string        `json:"title" firestore:"title"`
	Description string        `json:"description" firestore:"description"`
	ImageURL    string        `json:"image_url" firestore:"imageUrl"`
	Quantity    int           `json:"quantity" firestore:"quantity"`
	Tags        []string      `json:"tags" firestore:"tags"`
	Allergies   []string      `json:"allergies" firestore:"allergies"`
	Status      ListingStatus `json:"status" firestore:"status"`
	CreatedAt   time.Time     `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time     `json:"updated_at" firestore:"updatedAt"`
}

// ListingSummary is the slice of a listing embedded in thread and offer views.
type ListingSummary struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	ImageURL string        `json:"image_url"`
	Status   ListingStatus `json:"status"`
	Owner    *UserSummary  `json:"owner,omitempty"`
}

func (l *Listing) Summary() *ListingSummary {
	return &ListingSummary{
		ID:       l.ID,
		Title:    l.Title,
		ImageURL: l.ImageURL,
		Status:   l.Status,
	}
}
