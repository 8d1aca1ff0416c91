package feedback

import (
	"context"
	"math"
)

// Repository persists feedback and per-entry analyses.
type Repository interface {
	// Save stores f, assigns f.ID and returns it.
	Save(ctx context.Context, f *Feedback) (ID, error)
	GetByID(ctx context.Context, id ID) (*Feedback, error)
	// List returns every entry, newest first.
	List(ctx context.Context) ([]Feedback, error)
	Count(ctx context.Context) (int64, error)
	Statistics(ctx context.Context) (*Statistics, error)
	SaveAnalysis(ctx context.Context, id ID, summary *Summary) error
	GetAnalysis(ctx context.Context, id ID) (*Summary, error)
}

// RoundRating rounds an average rating to two decimals.
func RoundRating(avg float64) float64 {
	return math.Round(avg*100) / 100
}
