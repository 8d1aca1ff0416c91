package ratelimit

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config selects and configures the limiter built by New.
type Config struct {
	MaxCalls   int
	TimeWindow time.Duration
	// UseRedis requests the distributed limiter.
	UseRedis bool
	// RedisURL overrides REDIS_HOST, REDIS_PORT and REDIS_DB when set.
	RedisURL  string
	KeyPrefix string
}

// DefaultConfig returns the quota used for outbound AI calls: 2 calls per minute, local.
func DefaultConfig() Config {
	return Config{
		MaxCalls:   DefaultMaxCalls,
		TimeWindow: DefaultTimeWindow,
		KeyPrefix:  DefaultKeyPrefix,
	}
}

// New returns a DistributedLimiter when cfg.UseRedis is set and the store is usable,
// otherwise a LocalLimiter. It never fails; a failed distributed setup is logged and
// degrades to local mode.
func New(ctx context.Context, cfg Config, logger *zap.Logger) Limiter {
	quota := Quota{MaxCalls: cfg.MaxCalls, Window: cfg.TimeWindow}

	if !cfg.UseRedis {
		return newLoggedLocalLimiter(quota, logger)
	}

	limiter, err := newOwnedDistributedLimiter(ctx, cfg, quota)
	if err != nil {
		logger.Warn("distributed rate limiter unavailable, falling back to local limiter",
			zap.Error(err),
		)

		return newLoggedLocalLimiter(quota, logger)
	}

	logger.Info("using distributed rate limiter",
		zap.String("keyPrefix", limiter.keyPrefix),
		zap.Int("maxCalls", limiter.quota.MaxCalls),
		zap.Duration("window", limiter.quota.Window),
	)

	return limiter
}

// newLoggedLocalLimiter logs every admission at debug level.
func newLoggedLocalLimiter(quota Quota, logger *zap.Logger) *LocalLimiter {
	return NewLocalLimiter(quota, WithOnAdmit(func(at time.Time) {
		logger.Debug("rate limiter admitted call", zap.Time("at", at))
	}))
}

func newOwnedDistributedLimiter(ctx context.Context, cfg Config, quota Quota) (*DistributedLimiter, error) {
	opts, err := RedisOptions(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	limiter, err := NewDistributedLimiter(ctx, client, quota, WithKeyPrefix(cfg.KeyPrefix), withOwnedClient())
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	return limiter, nil
}

// RedisOptions resolves the limiter store address. A non-empty url wins; otherwise
// REDIS_HOST (localhost), REDIS_PORT (6379) and REDIS_DB (0) are read from the environment.
func RedisOptions(url string) (*redis.Options, error) {
	if url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("%w: parse redis url: %w", ErrStoreUnavailable, err)
		}

		return opts, nil
	}

	host := getEnv("REDIS_HOST", "localhost")

	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid REDIS_PORT: %w", ErrStoreUnavailable, err)
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid REDIS_DB: %w", ErrStoreUnavailable, err)
	}

	return &redis.Options{
		Addr: net.JoinHostPort(host, strconv.Itoa(port)),
		DB:   db,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
