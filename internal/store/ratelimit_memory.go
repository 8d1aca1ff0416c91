package store

import (
	"context"
	"sync"
	"time"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store for a single API process.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time // oldest first
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	timestamps := s.requests[key]

	expired := 0
	for expired < len(timestamps) && !timestamps[expired].After(cutoff) {
		expired++
	}

	timestamps = append(timestamps[expired:], now)
	s.requests[key] = timestamps

	return int64(len(timestamps)), nil
}
