package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepository runs the behaviour every feedback.Repository must share.
// newRepo must return an empty repository on each call.
func testRepository(t *testing.T, newRepo func(t *testing.T) feedback.Repository) {
	t.Helper()

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	entry := func(rating int, category string, offset time.Duration) *feedback.Feedback {
		return &feedback.Feedback{
			UserID:    "user-1",
			Rating:    rating,
			Comment:   "comment rated " + string(rune('0'+rating)),
			Timestamp: base.Add(offset),
			Category:  category,
		}
	}

	t.Run("save assigns increasing ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := entry(4, "general", 0)
		second := entry(2, "bug", time.Minute)

		id1, err := repo.Save(ctx, first)
		require.NoError(t, err)

		id2, err := repo.Save(ctx, second)
		require.NoError(t, err)

		assert.Equal(t, id1, first.ID)
		assert.Greater(t, id2, id1)
	})

	t.Run("get by id round-trips fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		f := entry(5, "feature", 0)

		id, err := repo.Save(ctx, f)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, id, got.ID)
		assert.Equal(t, f.UserID, got.UserID)
		assert.Equal(t, f.Rating, got.Rating)
		assert.Equal(t, f.Comment, got.Comment)
		assert.Equal(t, f.Category, got.Category)
		assert.True(t, f.Timestamp.Equal(got.Timestamp), "timestamp %s != %s", f.Timestamp, got.Timestamp)
	})

	t.Run("get unknown id returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.GetByID(context.Background(), 4242)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, feedback.ErrNotFound)
	})

	t.Run("list returns newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i, offset := range []time.Duration{time.Hour, 0, 2 * time.Hour} {
			_, err := repo.Save(ctx, entry(i+1, "general", offset))
			require.NoError(t, err)
		}

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)

		assert.Equal(t, 3, list[0].Rating)
		assert.Equal(t, 1, list[1].Rating)
		assert.Equal(t, 2, list[2].Rating)
	})

	t.Run("list on empty repository is empty", func(t *testing.T) {
		repo := newRepo(t)

		list, err := repo.List(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, list, "an empty list encodes as [] rather than null")
		assert.Empty(t, list)
	})

	t.Run("count and statistics", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, f := range []*feedback.Feedback{
			entry(5, "general", 0),
			entry(4, "general", time.Second),
			entry(2, "bug", 2*time.Second),
		} {
			_, err := repo.Save(ctx, f)
			require.NoError(t, err)
		}

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		stats, err := repo.Statistics(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.TotalFeedback)
		assert.InDelta(t, 3.67, stats.AverageRating, 1e-9)
		assert.Equal(t, map[string]int{"general": 2, "bug": 1}, stats.CategoryBreakdown)
	})

	t.Run("statistics on empty repository", func(t *testing.T) {
		repo := newRepo(t)

		stats, err := repo.Statistics(context.Background())

		require.NoError(t, err)
		assert.Zero(t, stats.TotalFeedback)
		assert.Zero(t, stats.AverageRating)
		assert.Empty(t, stats.CategoryBreakdown)
	})

	t.Run("analysis round-trips and can be replaced", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Save(ctx, entry(1, "bug", 0))
		require.NoError(t, err)

		_, err = repo.GetAnalysis(ctx, id)
		require.ErrorIs(t, err, feedback.ErrNotFound)

		first := &feedback.Summary{
			MainConcern:     "crash on login",
			Emotion:         "frustrated",
			Priority:        "high",
			Category:        "bug",
			ActionableItems: []string{"Fix login crash"},
		}
		require.NoError(t, repo.SaveAnalysis(ctx, id, first))

		got, err := repo.GetAnalysis(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, first, got)

		second := *first
		second.Priority = "medium"
		require.NoError(t, repo.SaveAnalysis(ctx, id, &second))

		got, err = repo.GetAnalysis(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "medium", got.Priority)
	})

	t.Run("analysis for unknown feedback returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.SaveAnalysis(context.Background(), 4242, &feedback.Summary{Priority: "low"})

		assert.ErrorIs(t, err, feedback.ErrNotFound)
	})
}
