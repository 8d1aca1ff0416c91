package handlers

import (
	"time"

	"github.com/serroba/feedback-demo-go/internal/analysis"
	"github.com/serroba/feedback-demo-go/internal/feedback"
)

// StatusResponse is the response of the root endpoint.
type StatusResponse struct {
	Body struct {
		Message string `example:"Feedback API is running" json:"message"`
	}
}

// SubmitFeedbackRequest is the request body for submitting feedback.
type SubmitFeedbackRequest struct {
	Body struct {
		UserID    string    `doc:"Submitting user" example:"user-42" json:"user_id,omitempty" required:"false"`
		Rating    int       `doc:"Rating from 1 to 5" example:"4" json:"rating" maximum:"5" minimum:"1"`
		Comment   string    `doc:"Free-text feedback" example:"Checkout is slow" json:"comment" minLength:"1"`
		Category  string    `doc:"Category such as bug or feature" example:"feature" json:"category,omitempty" required:"false"`
		Timestamp time.Time `doc:"When the feedback was given, defaults to now" json:"timestamp,omitempty" required:"false"`
	}
}

// SubmitFeedbackResponse confirms a stored submission.
type SubmitFeedbackResponse struct {
	Body struct {
		Message    string      `example:"Feedback received" json:"message"`
		FeedbackID feedback.ID `example:"1"                 json:"feedback_id"`
	}
}

// FeedbackIDRequest identifies one stored entry.
type FeedbackIDRequest struct {
	ID int64 `doc:"Feedback id" example:"1" minimum:"1" path:"id"`
}

// ListFeedbackResponse returns every stored entry, newest first.
type ListFeedbackResponse struct {
	Body struct {
		Feedback []feedback.Feedback `json:"feedback"`
		Count    int                 `json:"count"`
	}
}

// BasicInsightsResponse holds insights computed without the AI provider.
type BasicInsightsResponse struct {
	Body struct {
		Statistics       *feedback.Statistics `json:"statistics"`
		AverageRating    float64              `json:"average_rating"`
		AverageSentiment float64              `json:"average_sentiment"`
		CommonKeywords   []analysis.Keyword   `json:"common_keywords"`
		Insights         *feedback.Insights   `json:"insights"`
	}
}

// AIInsightsResponse holds model-generated insights for the whole set.
type AIInsightsResponse struct {
	Body struct {
		AIInsights *feedback.Insights   `json:"ai_insights"`
		Statistics *feedback.Statistics `json:"statistics"`
	}
}

// PriorityIssuesResponse lists low-rated entries that need attention.
type PriorityIssuesResponse struct {
	Body struct {
		PriorityIssues []analysis.Finding `json:"priority_issues"`
	}
}

// FeatureRequestsResponse lists analysed feature requests.
type FeatureRequestsResponse struct {
	Body struct {
		FeatureRequests []analysis.Finding `json:"feature_requests"`
	}
}

// AnalyzeFeedbackResponse pairs an entry with its fresh analysis.
type AnalyzeFeedbackResponse struct {
	Body struct {
		Feedback *feedback.Feedback `json:"feedback"`
		Analysis *feedback.Summary  `json:"analysis"`
	}
}

// StoredAnalysisResponse returns the analysis produced in the background.
type StoredAnalysisResponse struct {
	Body struct {
		FeedbackID feedback.ID       `json:"feedback_id"`
		Analysis   *feedback.Summary `json:"analysis"`
	}
}
