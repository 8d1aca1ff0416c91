package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store keeps the request windows behind a PolicyLimiter.
type Store interface {
	// Record appends a request now, forgets those older than window and
	// returns the count left in the window, this one included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}

// LimitExceeded describes the first limit a request broke.
type LimitExceeded struct {
	Scope  Scope
	Config LimitConfig
	Count  int64
}

// PolicyLimiter checks inbound requests against every limit of their scopes.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a policy-based request limiter.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &PolicyLimiter{
		store:  store,
		policy: policy,
	}
}

// Allow records the request under each applicable limit and stops at the first one exceeded.
// Scopes without configured limits are skipped.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (bool, *LimitExceeded, error) {
	for _, scope := range scopes {
		for _, limit := range l.policy.Limits[scope] {
			count, err := l.store.Record(ctx, windowKey(clientKey, string(scope), limit), limit.Window)
			if err != nil {
				return false, nil, fmt.Errorf("record %s request: %w", scope, err)
			}

			if count > limit.Max {
				return false, &LimitExceeded{Scope: scope, Config: limit, Count: count}, nil
			}
		}
	}

	return true, nil, nil
}

// AllowLimits applies ad hoc limits tracked under name rather than a policy scope.
func (l *PolicyLimiter) AllowLimits(
	ctx context.Context, clientKey, name string, limits []LimitConfig,
) (bool, *LimitExceeded, error) {
	for _, limit := range limits {
		count, err := l.store.Record(ctx, windowKey(clientKey, "custom:"+name, limit), limit.Window)
		if err != nil {
			return false, nil, fmt.Errorf("record %s request: %w", name, err)
		}

		if count > limit.Max {
			return false, &LimitExceeded{Scope: Scope(name), Config: limit, Count: count}, nil
		}
	}

	return true, nil, nil
}

// windowKey keeps each client, scope and window length on its own counter.
func windowKey(clientKey, scope string, limit LimitConfig) string {
	return fmt.Sprintf("%s:%s:%d", clientKey, scope, limit.Window.Milliseconds())
}
