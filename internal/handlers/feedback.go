package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/feedback-demo-go/internal/analysis"
	"github.com/serroba/feedback-demo-go/internal/events"
	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/messaging"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"go.uber.org/zap"
)

// Analyzer is the analysis surface the API needs.
type Analyzer interface {
	AnalyzeFeedback(ctx context.Context, f *feedback.Feedback) (*feedback.Summary, error)
	GenerateInsights(ctx context.Context, list []feedback.Feedback) (*feedback.Insights, error)
	PriorityIssues(ctx context.Context, list []feedback.Feedback) ([]analysis.Finding, error)
	FeatureRequests(ctx context.Context, list []feedback.Feedback) ([]analysis.Finding, error)
}

// FeedbackHandler serves feedback submission and analysis.
type FeedbackHandler struct {
	repo             feedback.Repository
	analyzer         Analyzer
	publishSubmitted messaging.Publish[events.FeedbackSubmittedEvent]
	aiTimeout        time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

// FeedbackHandlerOption configures a FeedbackHandler.
type FeedbackHandlerOption func(*FeedbackHandler)

// WithAITimeout bounds how long an AI-backed request may wait, including the
// wait for outbound quota. Zero leaves only the request context in charge.
func WithAITimeout(d time.Duration) FeedbackHandlerOption {
	return func(h *FeedbackHandler) {
		h.aiTimeout = d
	}
}

// WithClock replaces time.Now for submissions without a timestamp.
func WithClock(now func() time.Time) FeedbackHandlerOption {
	return func(h *FeedbackHandler) {
		h.now = now
	}
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(
	repo feedback.Repository,
	analyzer Analyzer,
	publishSubmitted messaging.Publish[events.FeedbackSubmittedEvent],
	logger *zap.Logger,
	opts ...FeedbackHandlerOption,
) *FeedbackHandler {
	h := &FeedbackHandler{
		repo:             repo,
		analyzer:         analyzer,
		publishSubmitted: publishSubmitted,
		logger:           logger,
		now:              time.Now,
	}

	for _, o := range opts {
		o(h)
	}

	return h
}

func (h *FeedbackHandler) Root(_ context.Context, _ *struct{}) (*StatusResponse, error) {
	resp := &StatusResponse{}
	resp.Body.Message = "Feedback API is running"

	return resp, nil
}

func (h *FeedbackHandler) SubmitFeedback(
	ctx context.Context, req *SubmitFeedbackRequest,
) (*SubmitFeedbackResponse, error) {
	f := &feedback.Feedback{
		UserID:    req.Body.UserID,
		Rating:    req.Body.Rating,
		Comment:   req.Body.Comment,
		Category:  req.Body.Category,
		Timestamp: req.Body.Timestamp,
	}

	f.Normalize(h.now().UTC())

	if err := f.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	id, err := h.repo.Save(ctx, f)
	if err != nil {
		h.logger.Error("failed to save feedback", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to save feedback")
	}

	meta := RequestMetaFromContext(ctx)

	if err := h.publishSubmitted(ctx, events.NewFeedbackSubmittedEvent(f, meta.ClientIP, meta.UserAgent)); err != nil {
		h.logger.Error("failed to publish feedback submitted event",
			zap.Int64("feedbackId", int64(id)),
			zap.Error(err),
		)
	}

	resp := &SubmitFeedbackResponse{}
	resp.Body.Message = "Feedback received"
	resp.Body.FeedbackID = id

	return resp, nil
}

func (h *FeedbackHandler) ListFeedback(ctx context.Context, _ *struct{}) (*ListFeedbackResponse, error) {
	list, err := h.repo.List(ctx)
	if err != nil {
		return nil, h.storeError("list feedback", err)
	}

	resp := &ListFeedbackResponse{}
	resp.Body.Feedback = list
	resp.Body.Count = len(list)

	return resp, nil
}

func (h *FeedbackHandler) BasicInsights(ctx context.Context, _ *struct{}) (*BasicInsightsResponse, error) {
	list, err := h.nonEmptyList(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := h.repo.Statistics(ctx)
	if err != nil {
		return nil, h.storeError("load statistics", err)
	}

	avg, _ := analysis.AverageRating(list)
	sentiment, _ := analysis.SentimentScore(list)

	resp := &BasicInsightsResponse{}
	resp.Body.Statistics = stats
	resp.Body.AverageRating = feedback.RoundRating(avg)
	resp.Body.AverageSentiment = sentiment
	resp.Body.CommonKeywords = analysis.CommonKeywords(list, analysis.DefaultKeywordCount)
	resp.Body.Insights = analysis.BasicInsights(list)

	return resp, nil
}

func (h *FeedbackHandler) AIInsights(ctx context.Context, _ *struct{}) (*AIInsightsResponse, error) {
	list, err := h.nonEmptyList(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := h.withAITimeout(ctx)
	defer cancel()

	insights, err := h.analyzer.GenerateInsights(ctx, list)
	if err != nil {
		return nil, h.analysisError("AI analysis", err)
	}

	stats, err := h.repo.Statistics(ctx)
	if err != nil {
		return nil, h.storeError("load statistics", err)
	}

	resp := &AIInsightsResponse{}
	resp.Body.AIInsights = insights
	resp.Body.Statistics = stats

	return resp, nil
}

func (h *FeedbackHandler) PriorityIssues(ctx context.Context, _ *struct{}) (*PriorityIssuesResponse, error) {
	list, err := h.nonEmptyList(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := h.withAITimeout(ctx)
	defer cancel()

	issues, err := h.analyzer.PriorityIssues(ctx, list)
	if err != nil {
		return nil, h.analysisError("Priority analysis", err)
	}

	resp := &PriorityIssuesResponse{}
	resp.Body.PriorityIssues = issues

	return resp, nil
}

func (h *FeedbackHandler) FeatureRequests(ctx context.Context, _ *struct{}) (*FeatureRequestsResponse, error) {
	list, err := h.nonEmptyList(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := h.withAITimeout(ctx)
	defer cancel()

	requests, err := h.analyzer.FeatureRequests(ctx, list)
	if err != nil {
		return nil, h.analysisError("Feature analysis", err)
	}

	resp := &FeatureRequestsResponse{}
	resp.Body.FeatureRequests = requests

	return resp, nil
}

// AnalyzeFeedback analyses one entry on demand and stores the result.
func (h *FeedbackHandler) AnalyzeFeedback(
	ctx context.Context, req *FeedbackIDRequest,
) (*AnalyzeFeedbackResponse, error) {
	f, err := h.repo.GetByID(ctx, feedback.ID(req.ID))
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			return nil, huma.Error404NotFound("Feedback not found")
		}

		return nil, h.storeError("load feedback", err)
	}

	aiCtx, cancel := h.withAITimeout(ctx)
	defer cancel()

	summary, err := h.analyzer.AnalyzeFeedback(aiCtx, f)
	if err != nil {
		return nil, h.analysisError("Individual analysis", err)
	}

	if err := h.repo.SaveAnalysis(ctx, f.ID, summary); err != nil {
		h.logger.Error("failed to store analysis",
			zap.Int64("feedbackId", int64(f.ID)),
			zap.Error(err),
		)
	}

	resp := &AnalyzeFeedbackResponse{}
	resp.Body.Feedback = f
	resp.Body.Analysis = summary

	return resp, nil
}

// GetAnalysis returns the stored analysis of one entry.
func (h *FeedbackHandler) GetAnalysis(
	ctx context.Context, req *FeedbackIDRequest,
) (*StoredAnalysisResponse, error) {
	summary, err := h.repo.GetAnalysis(ctx, feedback.ID(req.ID))
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			return nil, huma.Error404NotFound("Analysis not found")
		}

		return nil, h.storeError("load analysis", err)
	}

	resp := &StoredAnalysisResponse{}
	resp.Body.FeedbackID = feedback.ID(req.ID)
	resp.Body.Analysis = summary

	return resp, nil
}

func (h *FeedbackHandler) nonEmptyList(ctx context.Context) ([]feedback.Feedback, error) {
	list, err := h.repo.List(ctx)
	if err != nil {
		return nil, h.storeError("list feedback", err)
	}

	if len(list) == 0 {
		return nil, huma.Error404NotFound("No feedback available")
	}

	return list, nil
}

func (h *FeedbackHandler) withAITimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.aiTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, h.aiTimeout)
}

// analysisError maps an exhausted quota wait to 504 and anything else to 500.
func (h *FeedbackHandler) analysisError(operation string, err error) error {
	if errors.Is(err, ratelimit.ErrAcquireTimeout) {
		h.logger.Warn("ai quota wait timed out", zap.String("operation", operation), zap.Error(err))

		return huma.Error504GatewayTimeout(operation + " timed out waiting for AI quota")
	}

	h.logger.Error("analysis failed", zap.String("operation", operation), zap.Error(err))

	return huma.Error500InternalServerError(fmt.Sprintf("%s failed: %s", operation, err))
}

func (h *FeedbackHandler) storeError(operation string, err error) error {
	h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))

	return huma.Error500InternalServerError("failed to " + operation)
}
