package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/feedback-demo-go/internal/feedback"
)

const analyzerInstruction = `You are an expert feedback analyst. Analyze individual customer feedback
to extract key insights, categorize issues, and identify actionable items.
Focus on understanding the user's intent, emotional state, and specific problems.`

const insightsInstruction = `You are a product insights specialist. Analyze collections of feedback to
identify patterns, trends, and strategic insights. Provide actionable
recommendations for product improvement and prioritize issues by impact.`

func feedbackPrompt(f *feedback.Feedback) string {
	category := f.Category
	if category == "" {
		category = "Not specified"
	}

	user := f.UserID
	if user == "" {
		user = "Anonymous"
	}

	return fmt.Sprintf(`Analyze this customer feedback:

Rating: %d/5
Comment: %s
Category: %s
User ID: %s

Provide a detailed analysis including the main concern, emotional tone,
priority level, and specific actionable items.`, f.Rating, f.Comment, category, user)
}

type promptEntry struct {
	ID        int    `json:"id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
}

func insightsPrompt(list []feedback.Feedback) (string, error) {
	entries := make([]promptEntry, 0, len(list))

	for i, f := range list {
		entry := promptEntry{ID: i + 1, Rating: f.Rating, Comment: f.Comment, Category: f.Category}
		if !f.Timestamp.IsZero() {
			entry.Timestamp = f.Timestamp.UTC().Format(time.RFC3339)
		}

		entries = append(entries, entry)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode feedback for prompt: %w", err)
	}

	avg, _ := AverageRating(list)
	sentiment, _ := SentimentScore(list)

	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this collection of customer feedback and provide comprehensive insights:\n\n")
	fmt.Fprintf(&b, "Total Feedback Count: %d\n", len(list))
	fmt.Fprintf(&b, "Average Rating: %.2f/5\n", avg)
	fmt.Fprintf(&b, "Average Sentiment Score: %.2f\n\n", sentiment)
	fmt.Fprintf(&b, "Feedback Data:\n%s\n\n", data)
	b.WriteString(`Provide detailed analysis including:
1. Overall sentiment assessment
2. Key themes and patterns
3. Specific improvement suggestions
4. Urgency assessment
5. Category breakdown
6. Trending issues that need attention
7. Positive aspects users appreciate`)

	return b.String(), nil
}
