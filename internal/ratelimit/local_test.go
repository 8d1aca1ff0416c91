package ratelimit_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertWithinQuota checks that no window of length w holds more than m admissions.
// With admissions sorted, that holds exactly when times[i+m]-times[i] >= w for every i.
func assertWithinQuota(t *testing.T, times []time.Time, m int, w time.Duration) {
	t.Helper()

	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i := 0; i+m < len(sorted); i++ {
		gap := sorted[i+m].Sub(sorted[i])
		assert.GreaterOrEqual(t, gap, w, "admissions %d and %d are only %s apart", i, i+m, gap)
	}
}

func TestLocalLimiter_Defaults(t *testing.T) {
	limiter := ratelimit.NewLocalLimiter(ratelimit.Quota{})

	assert.Equal(t, ratelimit.Quota{MaxCalls: 2, Window: 60 * time.Second}, limiter.Quota())
}

func TestLocalLimiter_Acquire(t *testing.T) {
	t.Run("admits calls under quota immediately", func(t *testing.T) {
		limiter := ratelimit.NewLocalLimiter(ratelimit.Quota{MaxCalls: 2, Window: time.Minute})

		start := time.Now()

		require.NoError(t, limiter.Acquire(context.Background()))
		require.NoError(t, limiter.Acquire(context.Background()))

		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("blocks until the oldest call leaves the window", func(t *testing.T) {
		window := 300 * time.Millisecond
		limiter := ratelimit.NewLocalLimiter(ratelimit.Quota{MaxCalls: 2, Window: window})

		first := time.Now()

		require.NoError(t, limiter.Acquire(context.Background()))
		require.NoError(t, limiter.Acquire(context.Background()))
		require.NoError(t, limiter.Acquire(context.Background()))

		elapsed := time.Since(first)
		assert.GreaterOrEqual(t, elapsed, window-10*time.Millisecond)
		assert.Less(t, elapsed, window+250*time.Millisecond)
	})

	t.Run("admits again after the window has passed", func(t *testing.T) {
		limiter := ratelimit.NewLocalLimiter(ratelimit.Quota{MaxCalls: 1, Window: 50 * time.Millisecond})

		require.NoError(t, limiter.Acquire(context.Background()))

		time.Sleep(60 * time.Millisecond)

		start := time.Now()

		require.NoError(t, limiter.Acquire(context.Background()))
		assert.Less(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("sequential calls never exceed the quota", func(t *testing.T) {
		var admitted []time.Time

		quota := ratelimit.Quota{MaxCalls: 3, Window: 100 * time.Millisecond}
		limiter := ratelimit.NewLocalLimiter(quota, ratelimit.WithOnAdmit(func(at time.Time) {
			admitted = append(admitted, at)
		}))

		for range 10 {
			require.NoError(t, limiter.Acquire(context.Background()))
		}

		require.Len(t, admitted, 10)
		assertWithinQuota(t, admitted, quota.MaxCalls, quota.Window)
	})
}

func TestLocalLimiter_Concurrent(t *testing.T) {
	const callers = 12

	var (
		mu       sync.Mutex
		admitted []time.Time
	)

	quota := ratelimit.Quota{MaxCalls: 3, Window: 150 * time.Millisecond}
	limiter := ratelimit.NewLocalLimiter(quota, ratelimit.WithOnAdmit(func(at time.Time) {
		mu.Lock()
		defer mu.Unlock()

		admitted = append(admitted, at)
	}))

	var wg sync.WaitGroup

	errs := make(chan error, callers)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- limiter.Acquire(context.Background())
		}()
	}

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callers did not all return")
	}

	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, admitted, callers)
	assertWithinQuota(t, admitted, quota.MaxCalls, quota.Window)
}

func TestLocalLimiter_Deadline(t *testing.T) {
	t.Run("returns ErrAcquireTimeout when the context expires while waiting", func(t *testing.T) {
		var count int

		limiter := ratelimit.NewLocalLimiter(
			ratelimit.Quota{MaxCalls: 1, Window: time.Minute},
			ratelimit.WithOnAdmit(func(time.Time) { count++ }),
		)

		require.NoError(t, limiter.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Acquire(ctx)

		require.ErrorIs(t, err, ratelimit.ErrAcquireTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, count, "a timed out call must not be recorded")
	})

	t.Run("cancelled context ends the wait", func(t *testing.T) {
		limiter := ratelimit.NewLocalLimiter(ratelimit.Quota{MaxCalls: 1, Window: time.Minute})
		require.NoError(t, limiter.Acquire(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := limiter.Acquire(ctx)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
