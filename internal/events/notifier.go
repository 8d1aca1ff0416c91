package events

import (
	"context"

	"github.com/serroba/feedback-demo-go/internal/analysis"
	"go.uber.org/zap"
)

// PriorityNotifier reports analysed feedback that needs attention.
type PriorityNotifier struct {
	logger *zap.Logger
}

// NewPriorityNotifier creates a notifier that writes to logger.
func NewPriorityNotifier(logger *zap.Logger) *PriorityNotifier {
	return &PriorityNotifier{logger: logger}
}

// Handle logs high-priority results at warn level and the rest at debug.
func (n *PriorityNotifier) Handle(_ context.Context, event *FeedbackAnalyzedEvent) error {
	fields := []zap.Field{
		zap.Int64("feedbackId", int64(event.FeedbackID)),
		zap.String("priority", event.Priority),
		zap.String("emotion", event.Emotion),
		zap.String("category", event.Category),
		zap.Time("analyzedAt", event.AnalyzedAt),
	}

	if event.Priority == analysis.PriorityHigh {
		n.logger.Warn("high priority feedback", fields...)

		return nil
	}

	n.logger.Debug("feedback analysed event received", fields...)

	return nil
}
