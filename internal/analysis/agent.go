// Package analysis derives summaries and insights from feedback, either with
// local heuristics or through a rate-limited AI model.
package analysis

import (
	"context"
	"fmt"

	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"go.uber.org/zap"
)

// Finding pairs a feedback entry with its analysis.
type Finding struct {
	Feedback feedback.Feedback `json:"feedback"`
	Analysis feedback.Summary  `json:"analysis"`
}

// Agent analyses feedback. Every model call first acquires the limiter, so all
// agents sharing a limiter stay within one provider quota.
type Agent struct {
	model   Model
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithModel enables AI analysis. Without a model the agent uses heuristics only.
func WithModel(model Model) AgentOption {
	return func(a *Agent) {
		a.model = model
	}
}

// NewAgent creates an agent. A nil limiter gets the default local quota.
func NewAgent(limiter ratelimit.Limiter, logger *zap.Logger, opts ...AgentOption) *Agent {
	if limiter == nil {
		limiter = ratelimit.NewLocalLimiter(ratelimit.Quota{})
	}

	a := &Agent{
		limiter: limiter,
		logger:  logger,
	}

	for _, o := range opts {
		o(a)
	}

	return a
}

// AIEnabled reports whether a model is configured.
func (a *Agent) AIEnabled() bool {
	return a.model != nil
}

// AnalyzeFeedback summarises one entry.
func (a *Agent) AnalyzeFeedback(ctx context.Context, f *feedback.Feedback) (*feedback.Summary, error) {
	if a.model == nil {
		return BasicSummary(f), nil
	}

	if err := a.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for ai quota: %w", err)
	}

	a.logger.Debug("requesting feedback analysis", zap.Int64("feedbackId", int64(f.ID)))

	summary, err := a.model.Summarize(ctx, feedbackPrompt(f))
	if err != nil {
		return nil, fmt.Errorf("%w: analyze feedback %d: %w", ErrAIUnavailable, f.ID, err)
	}

	return summary, nil
}

// GenerateInsights aggregates the whole set. An empty set never reaches the model.
func (a *Agent) GenerateInsights(ctx context.Context, list []feedback.Feedback) (*feedback.Insights, error) {
	if len(list) == 0 {
		return EmptyInsights(), nil
	}

	if a.model == nil {
		return BasicInsights(list), nil
	}

	prompt, err := insightsPrompt(list)
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for ai quota: %w", err)
	}

	a.logger.Debug("requesting feedback insights", zap.Int("feedbackCount", len(list)))

	insights, err := a.model.Insights(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: generate insights: %w", ErrAIUnavailable, err)
	}

	return insights, nil
}

// PriorityIssues analyses low-rated entries and keeps those with high or medium priority.
func (a *Agent) PriorityIssues(ctx context.Context, list []feedback.Feedback) ([]Finding, error) {
	findings := []Finding{}

	for i := range list {
		if list[i].Rating > 2 {
			continue
		}

		summary, err := a.AnalyzeFeedback(ctx, &list[i])
		if err != nil {
			return nil, err
		}

		if summary.Priority == PriorityHigh || summary.Priority == PriorityMedium {
			findings = append(findings, Finding{Feedback: list[i], Analysis: *summary})
		}
	}

	return findings, nil
}

// FeatureRequests analyses every entry that asks for a feature.
func (a *Agent) FeatureRequests(ctx context.Context, list []feedback.Feedback) ([]Finding, error) {
	findings := []Finding{}

	for i := range list {
		if !IsFeatureRequest(&list[i]) {
			continue
		}

		summary, err := a.AnalyzeFeedback(ctx, &list[i])
		if err != nil {
			return nil, err
		}

		findings = append(findings, Finding{Feedback: list[i], Analysis: *summary})
	}

	return findings, nil
}
