package container

import (
	"context"

	"github.com/samber/do"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"github.com/serroba/feedback-demo-go/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the outbound AI quota and the inbound request limiter.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		cfg := ratelimit.Config{
			MaxCalls:   opts.AIMaxCalls,
			TimeWindow: opts.AIWindow,
			UseRedis:   opts.LimiterRedis,
			RedisURL:   opts.LimiterRedisURL,
			KeyPrefix:  opts.LimiterKeyPrefix,
		}

		return ratelimit.New(context.Background(), cfg, logger), nil
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		var counters ratelimit.Store = store.NewRateLimitMemoryStore()
		if opts.RateLimitStore == "redis" {
			counters = store.NewRateLimitRedisStore(do.MustInvoke[*Redis](i).Client)
		}

		return ratelimit.NewPolicyLimiter(counters, ratelimit.DefaultPolicy()), nil
	})
}
