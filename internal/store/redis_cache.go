package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/feedback-demo-go/internal/feedback"
)

// RedisCacheRepository wraps a Repository with Redis caching for entry and analysis reads.
// Aggregates (List, Count, Statistics) always go to the underlying store.
type RedisCacheRepository struct {
	store          feedback.Repository
	client         *redis.Client
	prefix         string
	analysisPrefix string
	ttl            time.Duration
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store feedback.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:          store,
		client:         client,
		prefix:         "feedback:",
		analysisPrefix: "feedback_analysis:",
		ttl:            ttl,
	}
}

// Save stores feedback in the underlying store and updates the cache.
func (r *RedisCacheRepository) Save(ctx context.Context, f *feedback.Feedback) (feedback.ID, error) {
	id, err := r.store.Save(ctx, f)
	if err != nil {
		return 0, err
	}

	// Write-through: update cache after successful save
	r.cacheFeedback(ctx, f)

	return id, nil
}

// GetByID retrieves feedback by id, checking cache first.
func (r *RedisCacheRepository) GetByID(ctx context.Context, id feedback.ID) (*feedback.Feedback, error) {
	if f, err := r.getFromCache(ctx, id); err == nil {
		return f, nil
	}

	f, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheFeedback(ctx, f)

	return f, nil
}

func (r *RedisCacheRepository) List(ctx context.Context) ([]feedback.Feedback, error) {
	return r.store.List(ctx)
}

func (r *RedisCacheRepository) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

func (r *RedisCacheRepository) Statistics(ctx context.Context) (*feedback.Statistics, error) {
	return r.store.Statistics(ctx)
}

// SaveAnalysis stores the analysis and refreshes its cache entry.
func (r *RedisCacheRepository) SaveAnalysis(ctx context.Context, id feedback.ID, summary *feedback.Summary) error {
	if err := r.store.SaveAnalysis(ctx, id, summary); err != nil {
		return err
	}

	r.cacheAnalysis(ctx, id, summary)

	return nil
}

// GetAnalysis retrieves an analysis, checking cache first.
func (r *RedisCacheRepository) GetAnalysis(ctx context.Context, id feedback.ID) (*feedback.Summary, error) {
	if payload, err := r.client.Get(ctx, r.analysisKey(id)).Bytes(); err == nil {
		var summary feedback.Summary
		if json.Unmarshal(payload, &summary) == nil {
			return &summary, nil
		}
	}

	summary, err := r.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheAnalysis(ctx, id, summary)

	return summary, nil
}

func (r *RedisCacheRepository) key(id feedback.ID) string {
	return r.prefix + strconv.FormatInt(int64(id), 10)
}

func (r *RedisCacheRepository) analysisKey(id feedback.ID) string {
	return r.analysisPrefix + strconv.FormatInt(int64(id), 10)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, id feedback.ID) (*feedback.Feedback, error) {
	result, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, feedback.ErrNotFound
	}

	rating, err := strconv.Atoi(result["rating"])
	if err != nil {
		return nil, err
	}

	var timestamp time.Time

	if ts, ok := result["timestamp"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			timestamp = time.Unix(0, nanos).UTC()
		}
	}

	return &feedback.Feedback{
		ID:        id,
		UserID:    result["user_id"],
		Rating:    rating,
		Comment:   result["comment"],
		Timestamp: timestamp,
		Category:  result["category"],
	}, nil
}

func (r *RedisCacheRepository) cacheFeedback(ctx context.Context, f *feedback.Feedback) {
	pipe := r.client.Pipeline()
	key := r.key(f.ID)

	pipe.HSet(ctx, key, map[string]interface{}{
		"user_id":   f.UserID,
		"rating":    f.Rating,
		"comment":   f.Comment,
		"timestamp": f.Timestamp.UnixNano(),
		"category":  f.Category,
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

func (r *RedisCacheRepository) cacheAnalysis(ctx context.Context, id feedback.ID, summary *feedback.Summary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}

	_ = r.client.Set(ctx, r.analysisKey(id), payload, r.ttl).Err()
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ feedback.Repository = (*RedisCacheRepository)(nil)
