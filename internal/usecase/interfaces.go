package usecase

import (
	"context"
	"time"

	"snackswap/internal/domain/entity"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// RateLimiter is consulted before actions that create records.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

// UnreadCache holds recent unread summaries. Every user has a generation
// that invalidation bumps. Get reports the current generation alongside a
// miss; Set stores a value for that generation only, so a count computed
// before an invalidation is never served after it.
type UnreadCache interface {
	GetMessages(ctx context.Context, userID string) (v *entity.UnreadMessages, gen int64, ok bool, err error)
	SetMessages(ctx context.Context, userID string, gen int64, v *entity.UnreadMessages) error
	GetOffers(ctx context.Context, userID string) (v *entity.UnreadOffers, gen int64, ok bool, err error)
	SetOffers(ctx context.Context, userID string, gen int64, v *entity.UnreadOffers) error
	InvalidateMessages(ctx context.Context, userIDs ...string) error
	InvalidateOffers(ctx context.Context, userIDs ...string) error
}

// Settings are the tunables shared by the use cases. The zero value has no
// cache, no rate limiting and no store timeout.
type Settings struct {
	StoreTimeout time.Duration
	Cache        UnreadCache
	RateLimiter  RateLimiter
	// TransitionAttempts bounds retries of an offer transition on transient
	// store failures.
	TransitionAttempts int
	// RetryBackoff is the first wait between attempts; it doubles each time.
	RetryBackoff time.Duration
}

// storeContext bounds one store call by the configured timeout.
func (s Settings) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.StoreTimeout)
}
