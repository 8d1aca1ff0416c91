package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/feedback-demo-go/internal/feedback"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
	comment TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	category TEXT NOT NULL DEFAULT 'general'
);
CREATE INDEX IF NOT EXISTS feedback_created_at_idx ON feedback (created_at DESC);
CREATE TABLE IF NOT EXISTS feedback_analysis (
	feedback_id BIGINT PRIMARY KEY REFERENCES feedback(id) ON DELETE CASCADE,
	summary JSONB NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// foreignKeyViolation is the SQLSTATE raised when an analysis names a missing feedback row.
const foreignKeyViolation = "23503"

// PostgresStore is a PostgreSQL implementation of feedback.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed feedback store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables when they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}

	return nil
}

// Ping reports whether the database is reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Save(ctx context.Context, f *feedback.Feedback) (feedback.ID, error) {
	query := `
		INSERT INTO feedback (user_id, rating, comment, created_at, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64

	err := p.pool.QueryRow(ctx, query, f.UserID, f.Rating, f.Comment, f.Timestamp, f.Category).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}

	f.ID = feedback.ID(id)

	return f.ID, nil
}

func (p *PostgresStore) GetByID(ctx context.Context, id feedback.ID) (*feedback.Feedback, error) {
	query := `
		SELECT id, user_id, rating, comment, created_at, category
		FROM feedback
		WHERE id = $1
	`

	f, err := scanPostgresFeedback(p.pool.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, feedback.ErrNotFound
		}

		return nil, err
	}

	return f, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]feedback.Feedback, error) {
	query := `
		SELECT id, user_id, rating, comment, created_at, category
		FROM feedback
		ORDER BY created_at DESC, id DESC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	list := []feedback.Feedback{}

	for rows.Next() {
		f, err := scanPostgresFeedback(rows)
		if err != nil {
			return nil, err
		}

		list = append(list, *f)
	}

	return list, rows.Err()
}

func (p *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}

	return count, nil
}

func (p *PostgresStore) Statistics(ctx context.Context) (*feedback.Statistics, error) {
	stats := &feedback.Statistics{CategoryBreakdown: make(map[string]int)}

	var avg float64

	err := p.pool.QueryRow(ctx, "SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8 FROM feedback").
		Scan(&stats.TotalFeedback, &avg)
	if err != nil {
		return nil, fmt.Errorf("feedback statistics: %w", err)
	}

	stats.AverageRating = feedback.RoundRating(avg)

	rows, err := p.pool.Query(ctx, "SELECT category, COUNT(*) FROM feedback GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("feedback categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int64
		)

		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("feedback categories: %w", err)
		}

		stats.CategoryBreakdown[category] = int(count)
	}

	return stats, rows.Err()
}

func (p *PostgresStore) SaveAnalysis(ctx context.Context, id feedback.ID, summary *feedback.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	query := `
		INSERT INTO feedback_analysis (feedback_id, summary, analyzed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (feedback_id) DO UPDATE SET summary = EXCLUDED.summary, analyzed_at = EXCLUDED.analyzed_at
	`

	if _, err := p.pool.Exec(ctx, query, int64(id), payload); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return feedback.ErrNotFound
		}

		return fmt.Errorf("save analysis: %w", err)
	}

	return nil
}

func (p *PostgresStore) GetAnalysis(ctx context.Context, id feedback.ID) (*feedback.Summary, error) {
	var payload []byte

	err := p.pool.QueryRow(ctx, "SELECT summary FROM feedback_analysis WHERE feedback_id = $1", int64(id)).
		Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, feedback.ErrNotFound
		}

		return nil, fmt.Errorf("get analysis: %w", err)
	}

	var summary feedback.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	return &summary, nil
}

// Shutdown closes the connection pool.
func (p *PostgresStore) Shutdown() error {
	p.pool.Close()

	return nil
}

func scanPostgresFeedback(row pgx.Row) (*feedback.Feedback, error) {
	var (
		f  feedback.Feedback
		id int64
	)

	if err := row.Scan(&id, &f.UserID, &f.Rating, &f.Comment, &f.Timestamp, &f.Category); err != nil {
		return nil, err
	}

	f.ID = feedback.ID(id)

	return &f, nil
}

var _ feedback.Repository = (*PostgresStore)(nil)
