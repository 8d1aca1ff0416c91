package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
)

// DefaultMaxBackoff caps each sleep of a distributed waiter so it notices
// capacity freed by other processes.
const DefaultMaxBackoff = time.Second

// DistributedLimiter enforces a quota per identifier across processes sharing a Redis store.
// Each identifier maps to a sorted set scored by admission time in microseconds.
//
// Pruning and counting run in one transaction and recording runs in a second one,
// so two processes can both pass the count check under contention. That bounded
// over-admission is accepted in exchange for never holding a remote lock.
type DistributedLimiter struct {
	client     *redis.Client
	ownsClient bool
	quota      Quota
	keyPrefix  string
	maxBackoff time.Duration
	newMember  func() string
}

// DistributedOption configures a DistributedLimiter.
type DistributedOption func(*DistributedLimiter)

// WithKeyPrefix namespaces the sorted-set keys. Empty keeps the default.
func WithKeyPrefix(prefix string) DistributedOption {
	return func(d *DistributedLimiter) {
		if prefix != "" {
			d.keyPrefix = prefix
		}
	}
}

// WithMaxBackoff caps the length of a single sleep while waiting for capacity.
func WithMaxBackoff(backoff time.Duration) DistributedOption {
	return func(d *DistributedLimiter) {
		if backoff > 0 {
			d.maxBackoff = backoff
		}
	}
}

// withOwnedClient makes Shutdown close the client.
func withOwnedClient() DistributedOption {
	return func(d *DistributedLimiter) {
		d.ownsClient = true
	}
}

// NewDistributedLimiter creates a limiter backed by client.
// The store is pinged eagerly: an absent or unreachable store fails construction.
func NewDistributedLimiter(
	ctx context.Context, client *redis.Client, quota Quota, opts ...DistributedOption,
) (*DistributedLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: no redis client configured", ErrStoreUnavailable)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// 21 characters of the URL-safe alphabet; collisions across processes are negligible.
	generate, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("create member generator: %w", err)
	}

	d := &DistributedLimiter{
		client:     client,
		quota:      quota.withDefaults(),
		keyPrefix:  DefaultKeyPrefix,
		maxBackoff: DefaultMaxBackoff,
		newMember:  generate,
	}

	for _, o := range opts {
		o(d)
	}

	return d, nil
}

// Quota returns the limiter configuration.
func (d *DistributedLimiter) Quota() Quota {
	return d.quota
}

// Acquire waits for capacity in the default bucket.
func (d *DistributedLimiter) Acquire(ctx context.Context) error {
	return d.AcquireFor(ctx, DefaultIdentifier)
}

// AcquireFor blocks until a call fits in the identifier's bucket, then records it.
// Distinct identifiers never contend with each other.
func (d *DistributedLimiter) AcquireFor(ctx context.Context, identifier string) error {
	if identifier == "" {
		identifier = DefaultIdentifier
	}

	key := d.key(identifier)

	for {
		now := time.Now()

		count, err := d.pruneAndCount(ctx, key, now)
		if err != nil {
			return err
		}

		if count < int64(d.quota.MaxCalls) {
			return d.record(ctx, key, now)
		}

		wait, err := d.untilOldestExpires(ctx, key, now)
		if err != nil {
			return err
		}

		if err := waitFor(ctx, min(wait, d.maxBackoff)); err != nil {
			return err
		}
	}
}

func (d *DistributedLimiter) key(identifier string) string {
	return d.keyPrefix + ":" + identifier
}

// pruneAndCount removes records outside the window and returns how many survive.
func (d *DistributedLimiter) pruneAndCount(ctx context.Context, key string, now time.Time) (int64, error) {
	cutoff := now.Add(-d.quota.Window).UnixMicro()

	var card *redis.IntCmd

	_, err := d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
		card = pipe.ZCard(ctx, key)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune rate limit window %s: %w", key, err)
	}

	return card.Val(), nil
}

// record appends an admission and refreshes the bucket expiry.
func (d *DistributedLimiter) record(ctx context.Context, key string, now time.Time) error {
	_, err := d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixMicro()),
			Member: d.newMember(),
		})
		pipe.PExpire(ctx, key, d.quota.Window)

		return nil
	})
	if err != nil {
		return fmt.Errorf("record rate limit call %s: %w", key, err)
	}

	return nil
}

// untilOldestExpires reports how long until the earliest record leaves the window.
// Zero means the caller should re-check immediately.
func (d *DistributedLimiter) untilOldestExpires(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	oldest, err := d.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read oldest rate limit call %s: %w", key, err)
	}

	if len(oldest) == 0 {
		return 0, nil
	}

	earliest := time.UnixMicro(int64(oldest[0].Score))

	return max(d.quota.Window-now.Sub(earliest), 0), nil
}

// Shutdown closes the Redis client when the limiter created it.
func (d *DistributedLimiter) Shutdown() error {
	if !d.ownsClient {
		return nil
	}

	return d.client.Close()
}

var _ Limiter = (*DistributedLimiter)(nil)
