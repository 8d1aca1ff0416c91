package ratelimit

import (
	"context"
	"sync"
	"time"
)

// LocalLimiter enforces a quota for all callers sharing one instance in a process.
// It is safe for concurrent use.
type LocalLimiter struct {
	quota   Quota
	onAdmit func(at time.Time)

	mu    sync.Mutex
	calls []time.Time // admitted call records, oldest first
}

// LocalOption configures a LocalLimiter.
type LocalOption func(*LocalLimiter)

// WithOnAdmit registers a callback invoked with the timestamp of every admitted call.
// It runs while the limiter lock is held and must not call back into the limiter.
func WithOnAdmit(fn func(at time.Time)) LocalOption {
	return func(l *LocalLimiter) {
		l.onAdmit = fn
	}
}

// NewLocalLimiter creates an in-process limiter with an empty window.
func NewLocalLimiter(quota Quota, opts ...LocalOption) *LocalLimiter {
	l := &LocalLimiter{
		quota: quota.withDefaults(),
	}

	for _, o := range opts {
		o(l)
	}

	l.calls = make([]time.Time, 0, l.quota.MaxCalls)

	return l
}

// Quota returns the limiter configuration.
func (l *LocalLimiter) Quota() Quota {
	return l.quota
}

// Acquire blocks until the call fits in the window and records it.
// The lock is released while sleeping; the window is re-checked after every wake-up.
func (l *LocalLimiter) Acquire(ctx context.Context) error {
	for {
		wait, admitted := l.tryAdmit()
		if admitted {
			return nil
		}

		if err := waitFor(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAdmit prunes, counts and appends in one critical section.
// When the window is full it returns how long until the oldest record leaves it.
func (l *LocalLimiter) tryAdmit() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.prune(now)

	if len(l.calls) < l.quota.MaxCalls {
		l.calls = append(l.calls, now)

		if l.onAdmit != nil {
			l.onAdmit(now)
		}

		return 0, true
	}

	return max(l.quota.Window-now.Sub(l.calls[0]), 0), false
}

// prune drops records that are no longer inside (now-window, now].
func (l *LocalLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.quota.Window)

	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}

	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

var _ Limiter = (*LocalLimiter)(nil)
