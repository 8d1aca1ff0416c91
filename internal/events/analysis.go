package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/messaging"
	"go.uber.org/zap"
)

// Analyzer produces a summary for one entry.
type Analyzer interface {
	AnalyzeFeedback(ctx context.Context, f *feedback.Feedback) (*feedback.Summary, error)
	AIEnabled() bool
}

// AnalysisHandler analyses submitted feedback in the background and stores the result.
type AnalysisHandler struct {
	repo     feedback.Repository
	analyzer Analyzer
	publish  messaging.Publish[FeedbackAnalyzedEvent]
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalysisHandler creates a handler for FeedbackSubmittedEvent.
func NewAnalysisHandler(
	repo feedback.Repository,
	analyzer Analyzer,
	publish messaging.Publish[FeedbackAnalyzedEvent],
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		repo:     repo,
		analyzer: analyzer,
		publish:  publish,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle analyses the submitted entry unless an analysis already exists.
// Entries that no longer exist are skipped. Errors cause redelivery.
func (h *AnalysisHandler) Handle(ctx context.Context, event *FeedbackSubmittedEvent) error {
	f, err := h.repo.GetByID(ctx, event.FeedbackID)
	if errors.Is(err, feedback.ErrNotFound) {
		h.logger.Warn("skipping analysis of missing feedback", zap.Int64("feedbackId", int64(event.FeedbackID)))

		return nil
	}

	if err != nil {
		return fmt.Errorf("load feedback %d: %w", event.FeedbackID, err)
	}

	if _, err := h.repo.GetAnalysis(ctx, f.ID); err == nil {
		h.logger.Debug("feedback already analysed", zap.Int64("feedbackId", int64(f.ID)))

		return nil
	} else if !errors.Is(err, feedback.ErrNotFound) {
		return fmt.Errorf("load analysis %d: %w", f.ID, err)
	}

	summary, err := h.analyzer.AnalyzeFeedback(ctx, f)
	if err != nil {
		return err
	}

	if err := h.repo.SaveAnalysis(ctx, f.ID, summary); err != nil {
		return fmt.Errorf("save analysis %d: %w", f.ID, err)
	}

	analyzed := &FeedbackAnalyzedEvent{
		FeedbackID:  f.ID,
		Priority:    summary.Priority,
		Emotion:     summary.Emotion,
		Category:    summary.Category,
		AIGenerated: h.analyzer.AIEnabled(),
		AnalyzedAt:  h.now(),
	}

	// The analysis is stored; a lost notification is logged rather than retried.
	if err := h.publish(ctx, analyzed); err != nil {
		h.logger.Error("failed to publish analyzed event",
			zap.Int64("feedbackId", int64(f.ID)),
			zap.Error(err),
		)
	}

	h.logger.Info("feedback analysed",
		zap.Int64("feedbackId", int64(f.ID)),
		zap.String("priority", summary.Priority),
		zap.Bool("aiGenerated", analyzed.AIGenerated),
	)

	return nil
}
