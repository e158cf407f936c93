package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Actions with their own budgets.
const (
	ActionStartThread = "start_thread"
	ActionSendMessage = "send_message"
	ActionCreateOffer = "create_offer"
	// ActionRequest is shared by every API request of one caller.
	ActionRequest = "api_request"
)

// Policy is a token bucket shape: Burst tokens, refilled one per Every.
type Policy struct {
	Burst int
	Every time.Duration
}

var defaultPolicies = map[string]Policy{
	// 10 messages per minute
	ActionSendMessage: {Burst: 10, Every: 6 * time.Second},
	// 5 new threads per hour
	ActionStartThread: {Burst: 5, Every: 12 * time.Minute},
	// 10 offers per hour
	ActionCreateOffer: {Burst: 10, Every: 6 * time.Minute},
	// 240 requests per minute, bursts of 60
	ActionRequest: {Burst: 60, Every: 250 * time.Millisecond},
}

var fallbackPolicy = Policy{Burst: 20, Every: 3 * time.Second}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	buckets  map[string]*bucket
	policies map[string]Policy
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithPolicies(defaultPolicies)
}

// NewRateLimiterWithPolicies overrides the per-action budgets. Actions
// missing from policies use a default budget of 20 per minute.
func NewRateLimiterWithPolicies(policies map[string]Policy) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		policies: policies,
		now:      time.Now,
	}
}

func (rl *RateLimiter) policy(action string) Policy {
	if p, ok := rl.policies[action]; ok {
		return p
	}
	return fallbackPolicy
}

// Allow consumes a token for userID's action. When none is available it
// returns false and the wait until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		p := rl.policy(action)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, rl.policy(action).Every
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Tokens reports the tokens currently available for userID's action.
func (rl *RateLimiter) Tokens(userID, action string) (tokens float64, burst int) {
	rl.mutex.Lock()
	b, exists := rl.buckets[userID+":"+action]
	rl.mutex.Unlock()

	if !exists {
		p := rl.policy(action)
		return float64(p.Burst), p.Burst
	}
	return b.limiter.TokensAt(rl.now()), b.limiter.Burst()
}

// Cleanup removes buckets that haven't been used for idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine prunes idle buckets every 30 minutes until ctx ends.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			}
		}
	}()
}
