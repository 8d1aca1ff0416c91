package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()

	s, err := store.OpenSQLite(context.Background(), path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func TestSQLiteStore(t *testing.T) {
	testRepository(t, func(t *testing.T) feedback.Repository {
		return openSQLite(t, filepath.Join(t.TempDir(), "feedback.db"))
	})
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s := openSQLite(t, ":memory:")

	id, err := s.Save(context.Background(), &feedback.Feedback{
		UserID: "u", Rating: 3, Comment: "fine", Category: "general", Timestamp: time.Now(),
	})
	require.NoError(t, err)

	got, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "fine", got.Comment)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.db")
	ctx := context.Background()

	first, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)

	id, err := first.Save(ctx, &feedback.Feedback{
		UserID: "u", Rating: 5, Comment: "love it", Category: "feature", Timestamp: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, first.Shutdown())

	second := openSQLite(t, path)

	got, err := second.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "love it", got.Comment)
}

func TestSQLiteStore_RejectsOutOfRangeRating(t *testing.T) {
	s := openSQLite(t, filepath.Join(t.TempDir(), "feedback.db"))

	_, err := s.Save(context.Background(), &feedback.Feedback{
		UserID: "u", Rating: 9, Comment: "x", Category: "general", Timestamp: time.Now(),
	})

	assert.Error(t, err)
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := openSQLite(t, ":memory:")

	assert.NoError(t, s.Ping(context.Background()))
}
