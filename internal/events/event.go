// Package events carries feedback lifecycle events between the API and the analysis workers.
package events

import (
	"time"

	"github.com/serroba/feedback-demo-go/internal/feedback"
)

const (
	TopicFeedbackSubmitted = "feedback.submitted"
	TopicFeedbackAnalyzed  = "feedback.analyzed"
)

// FeedbackSubmittedEvent is emitted after a new entry is stored.
type FeedbackSubmittedEvent struct {
	FeedbackID  feedback.ID `json:"feedbackId"`
	UserID      string      `json:"userId"`
	Rating      int         `json:"rating"`
	Category    string      `json:"category"`
	SubmittedAt time.Time   `json:"submittedAt"`
	ClientIP    string      `json:"clientIp,omitempty"`
	UserAgent   string      `json:"userAgent,omitempty"`
}

// FeedbackAnalyzedEvent is emitted once an entry's analysis has been stored.
type FeedbackAnalyzedEvent struct {
	FeedbackID  feedback.ID `json:"feedbackId"`
	Priority    string      `json:"priority"`
	Emotion     string      `json:"emotion"`
	Category    string      `json:"category"`
	AIGenerated bool        `json:"aiGenerated"`
	AnalyzedAt  time.Time   `json:"analyzedAt"`
}

// NewFeedbackSubmittedEvent describes a stored entry.
func NewFeedbackSubmittedEvent(f *feedback.Feedback, clientIP, userAgent string) *FeedbackSubmittedEvent {
	return &FeedbackSubmittedEvent{
		FeedbackID:  f.ID,
		UserID:      f.UserID,
		Rating:      f.Rating,
		Category:    f.Category,
		SubmittedAt: f.Timestamp,
		ClientIP:    clientIP,
		UserAgent:   userAgent,
	}
}
