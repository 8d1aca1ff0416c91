// Package feedback holds the domain types shared by storage, analysis and the API.
package feedback

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is stored when a submission names none.
const DefaultCategory = "general"

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrNotFound      = errors.New("feedback not found")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyComment  = errors.New("comment must not be empty")
)

// ID identifies a stored feedback entry.
type ID int64

// Feedback is a single user submission.
type Feedback struct {
	ID        ID        `json:"id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
}

// Validate checks the rating range and that the comment carries text.
func (f *Feedback) Validate() error {
	if f.Rating < MinRating || f.Rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, f.Rating)
	}

	if strings.TrimSpace(f.Comment) == "" {
		return ErrEmptyComment
	}

	return nil
}

// Normalize fills the category and timestamp when the submitter left them empty.
// Categories are folded to lower case so statistics group them in one bucket.
func (f *Feedback) Normalize(now time.Time) {
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	if f.Category == "" {
		f.Category = DefaultCategory
	}

	if f.Timestamp.IsZero() {
		f.Timestamp = now
	}
}

// Summary is the analysis of one feedback entry.
type Summary struct {
	MainConcern     string   `json:"main_concern"`
	Emotion         string   `json:"emotion"`
	Priority        string   `json:"priority"`
	Category        string   `json:"category"`
	ActionableItems []string `json:"actionable_items"`
}

// Insights aggregates analysis across all feedback.
type Insights struct {
	OverallSentiment       string         `json:"overall_sentiment"`
	SentimentScore         float64        `json:"sentiment_score"`
	KeyThemes              []string       `json:"key_themes"`
	ImprovementSuggestions []string       `json:"improvement_suggestions"`
	UrgencyLevel           string         `json:"urgency_level"`
	CategoryBreakdown      map[string]int `json:"category_breakdown"`
	TrendingIssues         []string       `json:"trending_issues"`
	PositiveHighlights     []string       `json:"positive_highlights"`
}

// Statistics are the aggregates computed by the repository.
type Statistics struct {
	TotalFeedback     int64          `json:"total_feedback"`
	AverageRating     float64        `json:"average_rating"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
}
