package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/serroba/feedback-demo-go/internal/feedback"
)

// timestampLayout keeps stored timestamps fixed-width so text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	rating INTEGER NOT NULL CHECK(rating >= 1 AND rating <= 5),
	comment TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	category TEXT DEFAULT 'general'
);
CREATE TABLE IF NOT EXISTS feedback_analysis (
	feedback_id INTEGER PRIMARY KEY REFERENCES feedback(id),
	summary TEXT NOT NULL,
	analyzed_at TEXT NOT NULL
);
`

// SQLiteStore is a SQLite implementation of feedback.Repository.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the tables when they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}

	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Save(ctx context.Context, f *feedback.Feedback) (feedback.ID, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, rating, comment, timestamp, category)
		VALUES (?, ?, ?, ?, ?)
	`, f.UserID, f.Rating, f.Comment, formatTimestamp(f.Timestamp), f.Category)
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}

	f.ID = feedback.ID(id)

	return f.ID, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id feedback.ID) (*feedback.Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, rating, comment, timestamp, category
		FROM feedback
		WHERE id = ?
	`, int64(id))

	f, err := scanSQLiteFeedback(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, feedback.ErrNotFound
		}

		return nil, err
	}

	return f, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]feedback.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, rating, comment, timestamp, category
		FROM feedback
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	list := []feedback.Feedback{}

	for rows.Next() {
		f, err := scanSQLiteFeedback(rows)
		if err != nil {
			return nil, err
		}

		list = append(list, *f)
	}

	return list, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}

	return count, nil
}

func (s *SQLiteStore) Statistics(ctx context.Context) (*feedback.Statistics, error) {
	stats := &feedback.Statistics{CategoryBreakdown: make(map[string]int)}

	var avg float64

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM feedback").
		Scan(&stats.TotalFeedback, &avg)
	if err != nil {
		return nil, fmt.Errorf("feedback statistics: %w", err)
	}

	stats.AverageRating = feedback.RoundRating(avg)

	rows, err := s.db.QueryContext(ctx,
		"SELECT COALESCE(category, ?), COUNT(*) FROM feedback GROUP BY category", feedback.DefaultCategory)
	if err != nil {
		return nil, fmt.Errorf("feedback categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)

		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("feedback categories: %w", err)
		}

		stats.CategoryBreakdown[category] += count
	}

	return stats, rows.Err()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, id feedback.ID, summary *feedback.Summary) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback_analysis (feedback_id, summary, analyzed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (feedback_id) DO UPDATE SET summary = excluded.summary, analyzed_at = excluded.analyzed_at
	`, int64(id), string(payload), formatTimestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id feedback.ID) (*feedback.Summary, error) {
	var payload string

	err := s.db.QueryRowContext(ctx,
		"SELECT summary FROM feedback_analysis WHERE feedback_id = ?", int64(id)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, feedback.ErrNotFound
		}

		return nil, fmt.Errorf("get analysis: %w", err)
	}

	var summary feedback.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	return &summary, nil
}

// Shutdown closes the database handle.
func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteFeedback(row rowScanner) (*feedback.Feedback, error) {
	var (
		f        feedback.Feedback
		id       int64
		ts       string
		category sql.NullString
	)

	if err := row.Scan(&id, &f.UserID, &f.Rating, &f.Comment, &ts, &category); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}

	f.ID = feedback.ID(id)
	f.Timestamp = parsed
	f.Category = feedback.DefaultCategory

	if category.Valid && category.String != "" {
		f.Category = category.String
	}

	return &f, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

var _ feedback.Repository = (*SQLiteStore)(nil)
