package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
)

func analysisScope() map[string]any {
	return map[string]any{
		ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeAnalysis},
	}
}

// RegisterRoutes registers the feedback API. Endpoints that can call the AI
// provider use the analysis scope; the rest derive their scope from the method.
func RegisterRoutes(api huma.API, h *FeedbackHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "API status",
		Tags:        []string{"Status"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Root)

	huma.Register(api, huma.Operation{
		OperationID:   "submit-feedback",
		Method:        http.MethodPost,
		Path:          "/feedback",
		Summary:       "Submit feedback",
		Description:   "Stores a feedback entry and queues it for background analysis.",
		Tags:          []string{"Feedback"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, h.SubmitFeedback)

	huma.Register(api, huma.Operation{
		OperationID: "list-feedback",
		Method:      http.MethodGet,
		Path:        "/feedback/all",
		Summary:     "List feedback",
		Description: "Returns every stored entry, newest first.",
		Tags:        []string{"Feedback"},
	}, h.ListFeedback)

	huma.Register(api, huma.Operation{
		OperationID: "basic-insights",
		Method:      http.MethodGet,
		Path:        "/feedback/basic-insights",
		Summary:     "Basic insights",
		Description: "Statistics, sentiment and keywords computed without the AI provider.",
		Tags:        []string{"Insights"},
	}, h.BasicInsights)

	huma.Register(api, huma.Operation{
		OperationID: "ai-insights",
		Method:      http.MethodGet,
		Path:        "/feedback/ai-insights",
		Summary:     "AI insights",
		Description: "Comprehensive insights generated by the AI provider.",
		Tags:        []string{"Insights"},
		Metadata:    analysisScope(),
	}, h.AIInsights)

	huma.Register(api, huma.Operation{
		OperationID: "priority-issues",
		Method:      http.MethodGet,
		Path:        "/feedback/priority-issues",
		Summary:     "Priority issues",
		Description: "Low-rated feedback that needs immediate attention.",
		Tags:        []string{"Insights"},
		Metadata:    analysisScope(),
	}, h.PriorityIssues)

	huma.Register(api, huma.Operation{
		OperationID: "feature-requests",
		Method:      http.MethodGet,
		Path:        "/feedback/feature-requests",
		Summary:     "Feature requests",
		Description: "Analysed feature requests.",
		Tags:        []string{"Insights"},
		Metadata:    analysisScope(),
	}, h.FeatureRequests)

	huma.Register(api, huma.Operation{
		OperationID: "analyze-feedback",
		Method:      http.MethodPost,
		Path:        "/feedback/analyze/{id}",
		Summary:     "Analyze feedback",
		Description: "Analyses one entry now and stores the result.",
		Tags:        []string{"Insights"},
		Metadata:    analysisScope(),
	}, h.AnalyzeFeedback)

	huma.Register(api, huma.Operation{
		OperationID: "get-analysis",
		Method:      http.MethodGet,
		Path:        "/feedback/{id}/analysis",
		Summary:     "Stored analysis",
		Description: "Returns the analysis produced for an entry, if any.",
		Tags:        []string{"Insights"},
	}, h.GetAnalysis)
}
