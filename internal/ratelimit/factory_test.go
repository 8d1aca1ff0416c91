package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("returns a local limiter by default", func(t *testing.T) {
		limiter := ratelimit.New(context.Background(), ratelimit.DefaultConfig(), zap.NewNop())

		local, ok := limiter.(*ratelimit.LocalLimiter)
		require.True(t, ok)
		assert.Equal(t, ratelimit.Quota{MaxCalls: 2, Window: time.Minute}, local.Quota())
	})

	t.Run("local limiter logs admissions at debug level", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		limiter := ratelimit.New(context.Background(), ratelimit.DefaultConfig(), zap.New(core))

		require.NoError(t, limiter.Acquire(context.Background()))
		require.NoError(t, limiter.Acquire(context.Background()))

		entries := logs.FilterMessage("rate limiter admitted call").All()
		require.Len(t, entries, 2)
		assert.Contains(t, entries[0].ContextMap(), "at")
	})

	t.Run("returns a distributed limiter when redis is reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)

		cfg := ratelimit.Config{
			MaxCalls:   5,
			TimeWindow: time.Second,
			UseRedis:   true,
			RedisURL:   "redis://" + mr.Addr() + "/0",
		}

		limiter := ratelimit.New(context.Background(), cfg, zap.NewNop())

		distributed, ok := limiter.(*ratelimit.DistributedLimiter)
		require.True(t, ok)
		assert.Equal(t, ratelimit.Quota{MaxCalls: 5, Window: time.Second}, distributed.Quota())

		require.NoError(t, distributed.Acquire(context.Background()))
		assert.True(t, mr.Exists("feedback_agent:default"))

		assert.NoError(t, distributed.Shutdown())
	})

	t.Run("reads redis coordinates from the environment", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv("REDIS_HOST", mr.Host())
		t.Setenv("REDIS_PORT", mr.Port())
		t.Setenv("REDIS_DB", "0")

		cfg := ratelimit.Config{UseRedis: true, KeyPrefix: "env"}

		limiter := ratelimit.New(context.Background(), cfg, zap.NewNop())

		distributed, ok := limiter.(*ratelimit.DistributedLimiter)
		require.True(t, ok)

		require.NoError(t, distributed.Acquire(context.Background()))
		assert.True(t, mr.Exists("env:default"))

		_ = distributed.Shutdown()
	})

	t.Run("falls back to local when redis is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := ratelimit.Config{UseRedis: true, RedisURL: "redis://" + addr}

		limiter := ratelimit.New(context.Background(), cfg, zap.NewNop())

		_, ok := limiter.(*ratelimit.LocalLimiter)
		assert.True(t, ok)
	})

	t.Run("falls back to local when the url is invalid", func(t *testing.T) {
		cfg := ratelimit.Config{UseRedis: true, RedisURL: "not a url"}

		limiter := ratelimit.New(context.Background(), cfg, zap.NewNop())

		_, ok := limiter.(*ratelimit.LocalLimiter)
		assert.True(t, ok)
	})

	t.Run("fallback limiter still throttles", func(t *testing.T) {
		cfg := ratelimit.Config{MaxCalls: 1, TimeWindow: time.Minute, UseRedis: true, RedisURL: "::bad::"}

		limiter := ratelimit.New(context.Background(), cfg, zap.NewNop())

		require.NoError(t, limiter.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		assert.ErrorIs(t, limiter.Acquire(ctx), ratelimit.ErrAcquireTimeout)
	})
}

func TestRedisOptions(t *testing.T) {
	t.Run("uses defaults when the environment is empty", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "")
		t.Setenv("REDIS_PORT", "")
		t.Setenv("REDIS_DB", "")

		opts, err := ratelimit.RedisOptions("")

		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 0, opts.DB)
	})

	t.Run("reads host, port and db", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "cache.internal")
		t.Setenv("REDIS_PORT", "6380")
		t.Setenv("REDIS_DB", "3")

		opts, err := ratelimit.RedisOptions("")

		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, 3, opts.DB)
	})

	t.Run("url overrides the environment", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "ignored")

		opts, err := ratelimit.RedisOptions("redis://example.com:7000/2")

		require.NoError(t, err)
		assert.Equal(t, "example.com:7000", opts.Addr)
		assert.Equal(t, 2, opts.DB)
	})

	t.Run("rejects a non-numeric port", func(t *testing.T) {
		t.Setenv("REDIS_PORT", "abc")

		_, err := ratelimit.RedisOptions("")

		assert.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)
	})
}
