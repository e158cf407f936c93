package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"snackswap/internal/adapter/repository"
	"snackswap/internal/domain/entity"
	domainrepo "snackswap/internal/domain/repository"
)

// clock hands out strictly increasing times so read cursors and message
// timestamps never tie by accident.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store *repository.MemoryStore
	repos *repository.Repositories
	clock *clock

	threads  *ThreadUseCase
	messages *MessageUseCase
	unread   *UnreadUseCase
	offers   *OfferUseCase
	listings *ListingUseCase
	reviews  *ReviewUseCase
	users    *UserUseCase
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	return newFixtureWithRepos(t, store, repository.NewMemoryRepositories(store), settings)
}

func newFixtureWithRepos(t *testing.T, store *repository.MemoryStore, repos *repository.Repositories, settings Settings) *fixture {
	t.Helper()
	f := &fixture{store: store, repos: repos, clock: newClock()}

	f.threads = NewThreadUseCase(repos.Threads, repos.Listings, repos.Users, settings)
	f.threads.now = f.clock.Now
	f.messages = NewMessageUseCase(f.threads, repos.Threads, repos.Messages, settings)
	f.messages.now = f.clock.Now
	f.unread = NewUnreadUseCase(repos.Threads, repos.Messages, repos.Offers, settings)
	f.offers = NewOfferUseCase(repos.Offers, repos.Listings, repos.Users, settings)
	f.offers.now = f.clock.Now
	f.offers.sleep = func(context.Context, time.Duration) error { return nil }
	f.listings = NewListingUseCase(repos.Listings, settings)
	f.reviews = NewReviewUseCase(repos.Reviews, repos.Users, repos.Offers, settings)
	f.users = NewUserUseCase(repos.Users, settings)
	return f
}

func (f *fixture) user(t *testing.T, id, name string) *entity.User {
	t.Helper()
	u, err := f.users.EnsureProfile(context.Background(), id, name, id+"@example.com")
	require.NoError(t, err)
	return u
}

func (f *fixture) listing(t *testing.T, ownerID, title string) *entity.Listing {
	t.Helper()
	l, err := f.listings.Create(context.Background(), ownerID, CreateListingInput{Title: title, Quantity: 2})
	require.NoError(t, err)
	return l
}

// memoryCache is an UnreadCache backed by maps, with per-user generations.
type memoryCache struct {
	mu          sync.Mutex
	messages    map[string]cachedMessages
	offers      map[string]cachedOffers
	messageGens map[string]int64
	offerGens   map[string]int64
}

type cachedMessages struct {
	gen int64
	v   *entity.UnreadMessages
}

type cachedOffers struct {
	gen int64
	v   *entity.UnreadOffers
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		messages:    make(map[string]cachedMessages),
		offers:      make(map[string]cachedOffers),
		messageGens: make(map[string]int64),
		offerGens:   make(map[string]int64),
	}
}

func (c *memoryCache) GetMessages(_ context.Context, userID string) (*entity.UnreadMessages, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.messageGens[userID]
	e, ok := c.messages[userID]
	if !ok || e.gen != gen {
		return nil, gen, false, nil
	}
	return e.v, gen, true, nil
}

func (c *memoryCache) SetMessages(_ context.Context, userID string, gen int64, v *entity.UnreadMessages) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.messageGens[userID] {
		c.messages[userID] = cachedMessages{gen: gen, v: v}
	}
	return nil
}

func (c *memoryCache) GetOffers(_ context.Context, userID string) (*entity.UnreadOffers, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.offerGens[userID]
	e, ok := c.offers[userID]
	if !ok || e.gen != gen {
		return nil, gen, false, nil
	}
	return e.v, gen, true, nil
}

func (c *memoryCache) SetOffers(_ context.Context, userID string, gen int64, v *entity.UnreadOffers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.offerGens[userID] {
		c.offers[userID] = cachedOffers{gen: gen, v: v}
	}
	return nil
}

func (c *memoryCache) InvalidateMessages(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.messageGens[id]++
		delete(c.messages, id)
	}
	return nil
}

func (c *memoryCache) InvalidateOffers(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.offerGens[id]++
		delete(c.offers, id)
	}
	return nil
}

func (c *memoryCache) hasMessages(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.messages[userID]
	return ok && e.gen == c.messageGens[userID]
}

// hookedMessageRepository runs afterCount once, right after the first
// CountUnread call returns its result.
type hookedMessageRepository struct {
	domainrepo.MessageRepository
	afterCount func()
}

func (r *hookedMessageRepository) CountUnread(ctx context.Context, threadID, userID string, since *time.Time) (int, error) {
	n, err := r.MessageRepository.CountUnread(ctx, threadID, userID, since)
	if hook := r.afterCount; hook != nil {
		r.afterCount = nil
		hook()
	}
	return n, err
}

// flakyOfferRepository fails Transition with err for the first failures calls.
type flakyOfferRepository struct {
	domainrepo.OfferRepository
	mu       sync.Mutex
	failures int
	calls    int
	err      error
}

func (r *flakyOfferRepository) Transition(ctx context.Context, offerID string, decide domainrepo.OfferDecision) (*entity.Offer, error) {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.failures
	r.mu.Unlock()
	if fail {
		return nil, r.err
	}
	return r.OfferRepository.Transition(ctx, offerID, decide)
}

// failingMessageRepository fails CountUnread for the listed threads.
type failingMessageRepository struct {
	domainrepo.MessageRepository
	failThreads map[string]bool
	err         error
}

func (r *failingMessageRepository) CountUnread(ctx context.Context, threadID, userID string, since *time.Time) (int, error) {
	if r.failThreads[threadID] {
		return 0, r.err
	}
	return r.MessageRepository.CountUnread(ctx, threadID, userID, since)
}

// failingThreadRepository fails MarkRead and ListByParticipant when set.
type failingThreadRepository struct {
	domainrepo.ThreadRepository
	failMarkRead bool
	failList     bool
	err          error
}

func (r *failingThreadRepository) MarkRead(ctx context.Context, threadID, userID string, at time.Time) error {
	if r.failMarkRead {
		return r.err
	}
	return r.ThreadRepository.MarkRead(ctx, threadID, userID, at)
}

func (r *failingThreadRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Thread, error) {
	if r.failList {
		return nil, r.err
	}
	return r.ThreadRepository.ListByParticipant(ctx, userID)
}
