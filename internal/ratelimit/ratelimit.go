// Package ratelimit throttles calls to downstream resources.
//
// Two families live here. Limiter blocks the caller until one more outbound
// call fits in a sliding window (LocalLimiter for a single process,
// DistributedLimiter for processes sharing a Redis store). PolicyLimiter answers
// allow/deny for inbound HTTP requests.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxCalls is the quota applied when none is configured.
	DefaultMaxCalls = 2
	// DefaultTimeWindow is the sliding window applied when none is configured.
	DefaultTimeWindow = 60 * time.Second
	// DefaultKeyPrefix namespaces distributed window keys.
	DefaultKeyPrefix = "feedback_agent"
	// DefaultIdentifier is the bucket used when a caller does not name one.
	DefaultIdentifier = "default"
)

var (
	// ErrAcquireTimeout is returned when the context ends before a call is admitted.
	ErrAcquireTimeout = errors.New("rate limit wait exceeded deadline")
	// ErrStoreUnavailable is returned when the distributed store cannot be used.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

// Limiter blocks until issuing one more call keeps the quota intact, then records the call.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Quota is the number of calls allowed within a trailing window.
type Quota struct {
	MaxCalls int
	Window   time.Duration
}

// withDefaults fills non-positive fields with the package defaults.
func (q Quota) withDefaults() Quota {
	if q.MaxCalls <= 0 {
		q.MaxCalls = DefaultMaxCalls
	}

	if q.Window <= 0 {
		q.Window = DefaultTimeWindow
	}

	return q
}

// waitFor sleeps for d or until ctx is done.
func waitFor(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAcquireTimeout, err)
	}

	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrAcquireTimeout, ctx.Err())
	case <-timer.C:
		return nil
	}
}
