package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store shared by all API replicas.
// Each key is a sorted set of request timestamps in microseconds.
type RateLimitRedisStore struct {
	client    *redis.Client
	prefix    string
	newMember func() string
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	generate, _ := nanoid.Standard(16)

	return &RateLimitRedisStore{
		client:    client,
		prefix:    "ratelimit:",
		newMember: generate,
	}
}

func (s *RateLimitRedisStore) Record(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-window).UnixMicro()
	redisKey := s.prefix + key

	var card *redis.IntCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: s.newMember()})
		card = pipe.ZCard(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, window)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record request %s: %w", key, err)
	}

	return card.Val(), nil
}
