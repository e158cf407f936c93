package entity

// UnreadMessages is the unread-message badge of one user.
type UnreadMessages struct {
	Total int `json:"total"`
	// PerThread holds only threads with at least one unread message.
	PerThread map[string]int `json:"per_thread"`
	// Partial is set when some threads could not be counted.
	Partial bool `json:"partial"`
}

// UnreadOffers is the count of pending offers waiting on one owner.
type UnreadOffers struct {
	Total   int  `json:"total"`
	Partial bool `json:"partial"`
}
