package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"snackswap/internal/domain/entity"
	"snackswap/internal/domain/identity"
	"snackswap/internal/domain/repository"
	"snackswap/pkg/errors"
)

// MemoryStore keeps every collection behind one lock so cross-entity writes
// (offer accept + listing reserve) are atomic. It backs development mode and
// tests.
type MemoryStore struct {
	mu sync.RWMutex

	threads  map[string]*entity.Thread
	messages map[string][]*entity.Message
	offers   map[string]*entity.Offer
	pending  map[string]string // identity.PendingOfferKey -> offer id
	listings map[string]*entity.Listing
	users    map[string]*entity.User
	reviews  map[string]*entity.Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads:  make(map[string]*entity.Thread),
		messages: make(map[string][]*entity.Message),
		offers:   make(map[string]*entity.Offer),
		pending:  make(map[string]string),
		listings: make(map[string]*entity.Listing),
		users:    make(map[string]*entity.User),
		reviews:  make(map[string]*entity.Review),
	}
}

// SeedThread stores t exactly as given, legacy fields included.
func (s *MemoryStore) SeedThread(t *entity.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ID] = copyThread(t)
}

// Thread returns the stored record of id without any normalization.
func (s *MemoryStore) Thread(id string) (*entity.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, false
	}
	return copyThread(t), true
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func copyThread(t *entity.Thread) *entity.Thread {
	out := *t
	out.Participants = append([]string(nil), t.Participants...)
	out.LegacyParticipantIDs = append([]string(nil), t.LegacyParticipantIDs...)
	if t.LastMessageAt != nil {
		at := *t.LastMessageAt
		out.LastMessageAt = &at
	}
	out.ReadCursor = make(map[string]time.Time, len(t.ReadCursor))
	for k, v := range t.ReadCursor {
		out.ReadCursor[k] = v
	}
	return &out
}

func samePair(t *entity.Thread, pair [2]string) bool {
	members := identity.Resolve(t)
	return len(members) == 2 && members[0] == pair[0] && members[1] == pair[1]
}

// ---- threads ----

type memoryThreadRepository struct {
	store *MemoryStore
}

func NewMemoryThreadRepository(store *MemoryStore) repository.ThreadRepository {
	return &memoryThreadRepository{store: store}
}

func (r *memoryThreadRepository) Create(ctx context.Context, thread *entity.Thread) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threads[thread.ID]; exists {
		return errors.Conflict("Thread already exists")
	}
	members := identity.Resolve(thread)
	if len(members) == 2 {
		pair := [2]string{members[0], members[1]}
		for _, existing := range s.threads {
			if existing.ListingID == thread.ListingID && samePair(existing, pair) {
				return errors.Conflict("Thread already exists")
			}
		}
	}
	if thread.ReadCursor == nil {
		thread.ReadCursor = make(map[string]time.Time)
	}
	s.threads[thread.ID] = copyThread(thread)
	return nil
}

func (r *memoryThreadRepository) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, errors.NotFound("Thread", nil)
	}
	return copyThread(t), nil
}

func (r *memoryThreadRepository) FindByListingAndPair(ctx context.Context, listingID string, pair [2]string) (*entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.threads {
		if t.ListingID == listingID && samePair(t, pair) {
			return copyThread(t), nil
		}
	}
	return nil, errors.NotFound("Thread", nil)
}

func (r *memoryThreadRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var threads []*entity.Thread
	for _, t := range s.threads {
		if identity.IsMember(t, userID) {
			threads = append(threads, copyThread(t))
		}
	}
	return threads, nil
}

func (r *memoryThreadRepository) SaveParticipants(ctx context.Context, thread *entity.Thread) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[thread.ID]
	if !ok {
		return errors.NotFound("Thread", nil)
	}
	t.Participants = append([]string(nil), thread.Participants...)
	t.LegacyParticipantIDs = nil
	return nil
}

func (r *memoryThreadRepository) MarkRead(ctx context.Context, threadID, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return errors.NotFound("Thread", nil)
	}
	if t.ReadCursor == nil {
		t.ReadCursor = make(map[string]time.Time)
	}
	t.ReadCursor[userID] = at
	return nil
}

func (r *memoryThreadRepository) TouchLastMessage(ctx context.Context, threadID string, at time.Time, snippet string) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return errors.NotFound("Thread", nil)
	}
	if t.LastMessageAt != nil && t.LastMessageAt.After(at) {
		return nil
	}
	t.LastMessageAt = &at
	t.LastMessageSnippet = snippet
	return nil
}

// ---- messages ----

type memoryMessageRepository struct {
	store *MemoryStore
}

func NewMemoryMessageRepository(store *MemoryStore) repository.MessageRepository {
	return &memoryMessageRepository{store: store}
}

func (r *memoryMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	if message.ID == "" {
		message.ID = uuid.Must(uuid.NewV7()).String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *message
	s.messages[message.ThreadID] = append(s.messages[message.ThreadID], &stored)
	return nil
}

func (r *memoryMessageRepository) ListByThread(ctx context.Context, threadID string) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	stored := s.messages[threadID]
	messages := make([]*entity.Message, 0, len(stored))
	for _, m := range stored {
		c := *m
		messages = append(messages, &c)
	}
	s.mu.RUnlock()

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (r *memoryMessageRepository) CountUnread(ctx context.Context, threadID, userID string, since *time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.messages[threadID] {
		if m.SenderID == userID {
			continue
		}
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		count++
	}
	return count, nil
}

// ---- offers ----

type memoryOfferRepository struct {
	store *MemoryStore
}

func NewMemoryOfferRepository(store *MemoryStore) repository.OfferRepository {
	return &memoryOfferRepository{store: store}
}

func (r *memoryOfferRepository) Create(ctx context.Context, offer *entity.Offer) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	if offer.ID == "" {
		offer.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = now
	}
	offer.UpdatedAt = offer.CreatedAt

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if offer.Status == entity.OfferPending {
		key := identity.PendingOfferKey(offer.ListingID, offer.OfferedBy)
		if _, taken := s.pending[key]; taken {
			return errors.Conflict("You already have a pending offer for this listing")
		}
		s.pending[key] = offer.ID
	}
	stored := *offer
	s.offers[offer.ID] = &stored
	return nil
}

func (r *memoryOfferRepository) GetByID(ctx context.Context, id string) (*entity.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[id]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	c := *o
	return &c, nil
}

func (r *memoryOfferRepository) list(ctx context.Context, match func(*entity.Offer) bool) ([]*entity.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	var offers []*entity.Offer
	for _, o := range s.offers {
		if match(o) {
			c := *o
			offers = append(offers, &c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(offers, func(i, j int) bool {
		if offers[i].CreatedAt.Equal(offers[j].CreatedAt) {
			return offers[i].ID > offers[j].ID
		}
		return offers[i].CreatedAt.After(offers[j].CreatedAt)
	})
	return offers, nil
}

func (r *memoryOfferRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Offer, error) {
	return r.list(ctx, func(o *entity.Offer) bool { return o.OwnerID == ownerID })
}

func (r *memoryOfferRepository) ListBySender(ctx context.Context, senderID string) ([]*entity.Offer, error) {
	return r.list(ctx, func(o *entity.Offer) bool { return o.OfferedBy == senderID })
}

func (r *memoryOfferRepository) CountPendingByOwner(ctx context.Context, ownerID string) (int, error) {
	offers, err := r.list(ctx, func(o *entity.Offer) bool {
		return o.OwnerID == ownerID && o.Status == entity.OfferPending
	})
	return len(offers), err
}

func (r *memoryOfferRepository) Transition(ctx context.Context, offerID string, decide repository.OfferDecision) (*entity.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.offers[offerID]
	if !ok {
		return nil, errors.NotFound("Offer", nil)
	}
	current := *stored
	transition, err := decide(&current)
	if err != nil {
		return nil, err
	}

	var listing *entity.Listing
	if transition.ListingStatus != "" {
		listing, ok = s.listings[stored.ListingID]
		if !ok {
			return nil, errors.NotFound("Listing", nil)
		}
	}

	now := time.Now()
	wasPending := stored.Status == entity.OfferPending
	stored.Apply(transition, now)
	if listing != nil {
		listing.Status = transition.ListingStatus
		listing.UpdatedAt = now
	}
	if wasPending && stored.Status != entity.OfferPending {
		delete(s.pending, identity.PendingOfferKey(stored.ListingID, stored.OfferedBy))
	}

	c := *stored
	return &c, nil
}

func (r *memoryOfferRepository) HasAccepted(ctx context.Context, listingID, userA, userB string) (bool, error) {
	offers, err := r.list(ctx, func(o *entity.Offer) bool {
		if o.ListingID != listingID || o.Status != entity.OfferAccepted {
			return false
		}
		return (o.OwnerID == userA && o.OfferedBy == userB) || (o.OwnerID == userB && o.OfferedBy == userA)
	})
	return len(offers) > 0, err
}

// ---- listings ----

type memoryListingRepository struct {
	store *MemoryStore
}

func NewMemoryListingRepository(store *MemoryStore) repository.ListingRepository {
	return &memoryListingRepository{store: store}
}

func (r *memoryListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	if listing.Status == "" {
		listing.Status = entity.ListingAvailable
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *listing
	s.listings[listing.ID] = &stored
	return nil
}

func (r *memoryListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	c := *l
	return &c, nil
}

func (r *memoryListingRepository) SetStatus(ctx context.Context, id string, status entity.ListingStatus) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	l.Status = status
	l.UpdatedAt = time.Now()
	return nil
}

// ---- users ----

type memoryUserRepository struct {
	store *MemoryStore
}

func NewMemoryUserRepository(store *MemoryStore) repository.UserRepository {
	return &memoryUserRepository{store: store}
}

func (r *memoryUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[user.ID]; ok {
		if user.Name != "" {
			existing.Name = user.Name
		}
		if user.Email != "" {
			existing.Email = user.Email
		}
		return nil
	}
	stored := *user
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.users[user.ID] = &stored
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	c := *u
	return &c, nil
}

func (r *memoryUserRepository) UpdateRating(ctx context.Context, id string, avg float64, count int) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errors.NotFound("User", nil)
	}
	u.RatingAvg = avg
	u.RatingCount = count
	return nil
}

// ---- reviews ----

type memoryReviewRepository struct {
	store *MemoryStore
}

func NewMemoryReviewRepository(store *MemoryStore) repository.ReviewRepository {
	return &memoryReviewRepository{store: store}
}

func (r *memoryReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}
	if review.ID == "" {
		review.ID = identity.ReviewID(review.ReviewerID, review.RevieweeID, review.ListingID)
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.reviews {
		if existing.ID == review.ID ||
			(existing.ReviewerID == review.ReviewerID && existing.RevieweeID == review.RevieweeID && existing.ListingID == review.ListingID) {
			return errors.Conflict("You already reviewed this user for this listing")
		}
	}
	stored := *review
	s.reviews[review.ID] = &stored
	return nil
}

func (r *memoryReviewRepository) list(ctx context.Context, limit int, match func(*entity.Review) bool) ([]*entity.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(err)
	}
	s := r.store
	s.mu.RLock()
	var reviews []*entity.Review
	for _, rv := range s.reviews {
		if match(rv) {
			c := *rv
			reviews = append(reviews, &c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}

func (r *memoryReviewRepository) ListByReviewee(ctx context.Context, revieweeID string, limit int) ([]*entity.Review, error) {
	return r.list(ctx, limit, func(rv *entity.Review) bool { return rv.RevieweeID == revieweeID })
}

func (r *memoryReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, limit int) ([]*entity.Review, error) {
	return r.list(ctx, limit, func(rv *entity.Review) bool { return rv.ReviewerID == reviewerID })
}
