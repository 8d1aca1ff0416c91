package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func newDistributedLimiter(
	t *testing.T, mr *miniredis.Miniredis, quota ratelimit.Quota, opts ...ratelimit.DistributedOption,
) *ratelimit.DistributedLimiter {
	t.Helper()

	limiter, err := ratelimit.NewDistributedLimiter(context.Background(), newRedisClient(t, mr), quota, opts...)
	require.NoError(t, err)

	return limiter
}

func TestNewDistributedLimiter(t *testing.T) {
	t.Run("fails without a client", func(t *testing.T) {
		limiter, err := ratelimit.NewDistributedLimiter(context.Background(), nil, ratelimit.Quota{})

		assert.Nil(t, limiter)
		assert.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)
	})

	t.Run("fails eagerly when the store is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := newRedisClient(t, mr)
		mr.Close()

		limiter, err := ratelimit.NewDistributedLimiter(context.Background(), client, ratelimit.Quota{})

		assert.Nil(t, limiter)
		assert.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)
	})

	t.Run("applies default quota", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{})

		assert.Equal(t, ratelimit.Quota{MaxCalls: 2, Window: time.Minute}, limiter.Quota())
	})
}

func TestDistributedLimiter_AcquireFor(t *testing.T) {
	t.Run("records admitted calls with expiry", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := newRedisClient(t, mr)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 2, Window: time.Minute})
		ctx := context.Background()

		require.NoError(t, limiter.AcquireFor(ctx, "x"))
		require.NoError(t, limiter.AcquireFor(ctx, "x"))

		count, err := client.ZCard(ctx, "feedback_agent:x").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		ttl, err := client.PTTL(ctx, "feedback_agent:x").Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("Acquire uses the default identifier", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 2, Window: time.Minute})

		require.NoError(t, limiter.Acquire(context.Background()))

		assert.True(t, mr.Exists("feedback_agent:default"))
	})

	t.Run("empty identifier maps to the default bucket", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 2, Window: time.Minute})

		require.NoError(t, limiter.AcquireFor(context.Background(), ""))

		assert.True(t, mr.Exists("feedback_agent:default"))
	})

	t.Run("honours a custom key prefix", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 2, Window: time.Minute},
			ratelimit.WithKeyPrefix("insights"))

		require.NoError(t, limiter.AcquireFor(context.Background(), "tenant"))

		assert.True(t, mr.Exists("insights:tenant"))
		assert.False(t, mr.Exists("feedback_agent:tenant"))
	})

	t.Run("distinct identifiers do not contend", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 1, Window: time.Minute})

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		require.NoError(t, limiter.AcquireFor(ctx, "a"))
		require.NoError(t, limiter.AcquireFor(ctx, "b"))
	})

	t.Run("second process waits for the shared window", func(t *testing.T) {
		mr := miniredis.RunT(t)
		quota := ratelimit.Quota{MaxCalls: 1, Window: 2 * time.Second}
		processA := newDistributedLimiter(t, mr, quota)
		processB := newDistributedLimiter(t, mr, quota)
		ctx := context.Background()

		require.NoError(t, processA.AcquireFor(ctx, "x"))

		admittedA := time.Now()

		require.NoError(t, processB.AcquireFor(ctx, "x"))

		elapsed := time.Since(admittedA)
		assert.GreaterOrEqual(t, elapsed, 1900*time.Millisecond)
		assert.Less(t, elapsed, 3500*time.Millisecond)
	})

	t.Run("a short backoff notices capacity freed elsewhere", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 1, Window: 5 * time.Second},
			ratelimit.WithMaxBackoff(20*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		require.NoError(t, limiter.AcquireFor(ctx, "x"))

		admitted := make(chan error, 1)

		go func() { admitted <- limiter.AcquireFor(ctx, "x") }()

		time.Sleep(50 * time.Millisecond)

		freedAt := time.Now()

		mr.Del("feedback_agent:x")

		select {
		case err := <-admitted:
			require.NoError(t, err)
			assert.Less(t, time.Since(freedAt), 500*time.Millisecond)
		case <-ctx.Done():
			t.Fatal("waiter was not admitted after the window was cleared")
		}
	})

	t.Run("returns ErrAcquireTimeout without recording when the deadline passes", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := newRedisClient(t, mr)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 1, Window: time.Minute})

		require.NoError(t, limiter.AcquireFor(context.Background(), "x"))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := limiter.AcquireFor(ctx, "x")

		require.ErrorIs(t, err, ratelimit.ErrAcquireTimeout)

		count, err := client.ZCard(context.Background(), "feedback_agent:x").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("propagates store failures", func(t *testing.T) {
		mr := miniredis.RunT(t)
		limiter := newDistributedLimiter(t, mr, ratelimit.Quota{MaxCalls: 1, Window: time.Minute})

		mr.Close()

		err := limiter.AcquireFor(context.Background(), "x")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ratelimit.ErrAcquireTimeout)
	})
}

func TestDistributedLimiter_Shutdown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newRedisClient(t, mr)

	limiter, err := ratelimit.NewDistributedLimiter(context.Background(), client, ratelimit.Quota{})
	require.NoError(t, err)

	require.NoError(t, limiter.Shutdown())

	// A caller-provided client stays open.
	assert.NoError(t, client.Ping(context.Background()).Err())
}
