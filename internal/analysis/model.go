package analysis

import (
	"context"
	"errors"

	"github.com/serroba/feedback-demo-go/internal/feedback"
)

// ErrAIUnavailable wraps failures of the AI provider and marks a missing configuration.
var ErrAIUnavailable = errors.New("ai analysis unavailable")

// Model turns prompts into structured analyses.
type Model interface {
	Summarize(ctx context.Context, prompt string) (*feedback.Summary, error)
	Insights(ctx context.Context, prompt string) (*feedback.Insights, error)
}
