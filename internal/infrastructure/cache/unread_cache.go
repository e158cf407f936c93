// Package cache keeps short-lived unread badge counts so that polling clients
// do not fan out to the store on every request.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"snackswap/internal/domain/entity"
)

const (
	messagesPrefix = "unread:messages:"
	offersPrefix   = "unread:offers:"

	valueSegment = "v:"
	genSegment   = "gen:"

	// minGenerationTTL keeps a generation counter well past the life of any
	// value stored under it.
	minGenerationTTL = 24 * time.Hour
)

// RedisUnreadCache stores unread summaries as JSON strings with a TTL. Values
// live under unread:<kind>:v:<user>:<gen>; invalidation increments
// unread:<kind>:gen:<user>, which orphans every value written for an older
// generation.
type RedisUnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisUnreadCache connects to redisURL and verifies it with a ping.
func NewRedisUnreadCache(redisURL string, ttl time.Duration) (*RedisUnreadCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisUnreadCacheWithClient(client, ttl), nil
}

func NewRedisUnreadCacheWithClient(client *redis.Client, ttl time.Duration) *RedisUnreadCache {
	return &RedisUnreadCache{
		client: client,
		ttl:    ttl,
	}
}

func valueKey(prefix, userID string, gen int64) string {
	return prefix + valueSegment + userID + ":" + strconv.FormatInt(gen, 10)
}

func genKey(prefix, userID string) string {
	return prefix + genSegment + userID
}

func (c *RedisUnreadCache) generationTTL() time.Duration {
	if ttl := 2 * c.ttl; ttl > minGenerationTTL {
		return ttl
	}
	return minGenerationTTL
}

// get returns the user's current generation and, when present, decodes the
// value stored for it into dst.
func (c *RedisUnreadCache) get(ctx context.Context, prefix, userID string, dst interface{}) (int64, bool, error) {
	gen, err := c.client.Get(ctx, genKey(prefix, userID)).Int64()
	if err == redis.Nil {
		gen = 0
	} else if err != nil {
		return 0, false, fmt.Errorf("read generation of %s: %w", userID, err)
	}

	key := valueKey(prefix, userID, gen)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return gen, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return gen, true, nil
}

func (c *RedisUnreadCache) set(ctx context.Context, prefix, userID string, gen int64, v interface{}) error {
	key := valueKey(prefix, userID, gen)
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (c *RedisUnreadCache) GetMessages(ctx context.Context, userID string) (*entity.UnreadMessages, int64, bool, error) {
	var v entity.UnreadMessages
	gen, ok, err := c.get(ctx, messagesPrefix, userID, &v)
	if !ok || err != nil {
		return nil, gen, false, err
	}
	if v.PerThread == nil {
		v.PerThread = map[string]int{}
	}
	return &v, gen, true, nil
}

func (c *RedisUnreadCache) SetMessages(ctx context.Context, userID string, gen int64, v *entity.UnreadMessages) error {
	return c.set(ctx, messagesPrefix, userID, gen, v)
}

func (c *RedisUnreadCache) GetOffers(ctx context.Context, userID string) (*entity.UnreadOffers, int64, bool, error) {
	var v entity.UnreadOffers
	gen, ok, err := c.get(ctx, offersPrefix, userID, &v)
	if !ok || err != nil {
		return nil, gen, false, err
	}
	return &v, gen, true, nil
}

func (c *RedisUnreadCache) SetOffers(ctx context.Context, userID string, gen int64, v *entity.UnreadOffers) error {
	return c.set(ctx, offersPrefix, userID, gen, v)
}

// InvalidateMessages moves the message badges of userIDs to a new generation.
func (c *RedisUnreadCache) InvalidateMessages(ctx context.Context, userIDs ...string) error {
	return c.bump(ctx, messagesPrefix, userIDs)
}

// InvalidateOffers moves the offer badges of userIDs to a new generation.
func (c *RedisUnreadCache) InvalidateOffers(ctx context.Context, userIDs ...string) error {
	return c.bump(ctx, offersPrefix, userIDs)
}

func (c *RedisUnreadCache) bump(ctx context.Context, prefix string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	ttl := c.generationTTL()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			key := genKey(prefix, id)
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate unread cache: %w", err)
	}
	return nil
}

func (c *RedisUnreadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisUnreadCache) Close() error {
	return c.client.Close()
}
