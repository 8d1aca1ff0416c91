package analysis

import (
	"sort"
	"strings"

	"github.com/serroba/feedback-demo-go/internal/feedback"
)

const (
	// mainConcernLimit is the number of comment characters kept as the main concern.
	mainConcernLimit = 100
	// sentimentThreshold separates positive and negative from neutral.
	sentimentThreshold = 0.1
	// DefaultKeywordCount is how many keywords CommonKeywords returns by default.
	DefaultKeywordCount = 5
)

const (
	EmotionSatisfied  = "satisfied"
	EmotionFrustrated = "frustrated"
	EmotionNeutral    = "neutral"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"

	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Keyword is a lower-cased token with its number of occurrences.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Statistics summarises a feedback set without calling the AI provider.
type Statistics struct {
	TotalFeedback        int            `json:"total_feedback"`
	AverageRating        float64        `json:"average_rating"`
	RatingDistribution   map[int]int    `json:"rating_distribution"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	SentimentScore       float64        `json:"sentiment_score"`
	LatestFeedbackCount  int            `json:"latest_feedback_count"`
}

// AverageRating returns the mean rating; ok is false for an empty set.
func AverageRating(list []feedback.Feedback) (avg float64, ok bool) {
	if len(list) == 0 {
		return 0, false
	}

	var sum int
	for _, f := range list {
		sum += f.Rating
	}

	return float64(sum) / float64(len(list)), true
}

// SentimentScore is the mean comment polarity. When no comment carries text
// it maps the average rating from 1..5 onto -1..1 instead.
func SentimentScore(list []feedback.Feedback) (score float64, ok bool) {
	if len(list) == 0 {
		return 0, false
	}

	var (
		sum      float64
		withText bool
	)

	for _, f := range list {
		if strings.TrimSpace(f.Comment) != "" {
			withText = true
		}

		sum += Polarity(f.Comment)
	}

	if !withText {
		avg, _ := AverageRating(list)

		return (avg - 3) / 2, true
	}

	return sum / float64(len(list)), true
}

// CommonKeywords returns the n most frequent whitespace-separated tokens.
// Ties keep the order in which the tokens were first seen.
func CommonKeywords(list []feedback.Feedback, n int) []Keyword {
	if n <= 0 || len(list) == 0 {
		return []Keyword{}
	}

	counts := make(map[string]int)

	var order []string

	for _, f := range list {
		for _, word := range strings.Fields(strings.ToLower(f.Comment)) {
			if counts[word] == 0 {
				order = append(order, word)
			}

			counts[word]++
		}
	}

	keywords := make([]Keyword, 0, len(order))
	for _, word := range order {
		keywords = append(keywords, Keyword{Word: word, Count: counts[word]})
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].Count > keywords[j].Count
	})

	return keywords[:min(n, len(keywords))]
}

// ComputeStatistics returns nil for an empty set.
func ComputeStatistics(list []feedback.Feedback) *Statistics {
	if len(list) == 0 {
		return nil
	}

	avg, _ := AverageRating(list)
	sentiment, _ := SentimentScore(list)

	stats := &Statistics{
		TotalFeedback:        len(list),
		AverageRating:        avg,
		RatingDistribution:   make(map[int]int),
		CategoryDistribution: make(map[string]int),
		SentimentScore:       sentiment,
	}

	for _, f := range list {
		stats.RatingDistribution[f.Rating]++

		if f.Category != "" {
			stats.CategoryDistribution[f.Category]++
		}

		if !f.Timestamp.IsZero() {
			stats.LatestFeedbackCount++
		}
	}

	return stats
}

// BasicSummary analyses one entry from its rating and comment polarity.
func BasicSummary(f *feedback.Feedback) *feedback.Summary {
	sentiment := Polarity(f.Comment)
	if strings.TrimSpace(f.Comment) == "" {
		sentiment = float64(f.Rating-3) / 2
	}

	var emotion string

	switch {
	case f.Rating >= 4 && sentiment > sentimentThreshold:
		emotion = EmotionSatisfied
	case f.Rating <= 2 || sentiment < -sentimentThreshold:
		emotion = EmotionFrustrated
	default:
		emotion = EmotionNeutral
	}

	var priority string

	switch {
	case f.Rating <= 2:
		priority = PriorityHigh
	case f.Rating == 3:
		priority = PriorityMedium
	default:
		priority = PriorityLow
	}

	category := f.Category
	if category == "" {
		category = feedback.DefaultCategory
	}

	return &feedback.Summary{
		MainConcern:     truncate(f.Comment, mainConcernLimit),
		Emotion:         emotion,
		Priority:        priority,
		Category:        category,
		ActionableItems: []string{"Review customer feedback", "Follow up if needed"},
	}
}

// EmptyInsights is the neutral result for a set with no feedback.
func EmptyInsights() *feedback.Insights {
	return &feedback.Insights{
		OverallSentiment:       SentimentNeutral,
		SentimentScore:         0,
		KeyThemes:              []string{},
		ImprovementSuggestions: []string{},
		UrgencyLevel:           PriorityLow,
		CategoryBreakdown:      map[string]int{},
		TrendingIssues:         []string{},
		PositiveHighlights:     []string{},
	}
}

// BasicInsights aggregates a feedback set without the AI provider.
func BasicInsights(list []feedback.Feedback) *feedback.Insights {
	if len(list) == 0 {
		return EmptyInsights()
	}

	avg, _ := AverageRating(list)
	sentiment, _ := SentimentScore(list)

	overall := SentimentNeutral

	switch {
	case sentiment > sentimentThreshold:
		overall = SentimentPositive
	case sentiment < -sentimentThreshold:
		overall = SentimentNegative
	}

	var low int

	for _, f := range list {
		if f.Rating <= 2 {
			low++
		}
	}

	urgency := PriorityLow
	total := float64(len(list))

	switch {
	case float64(low) > total*0.3:
		urgency = PriorityHigh
	case float64(low) > total*0.1:
		urgency = PriorityMedium
	}

	breakdown := make(map[string]int)

	for _, f := range list {
		if f.Category != "" {
			breakdown[f.Category]++
		}
	}

	keywords := CommonKeywords(list, DefaultKeywordCount)
	themes := make([]string, 0, len(keywords))

	for _, k := range keywords {
		themes = append(themes, k.Word)
	}

	highlights := []string{}
	if avg > 4 {
		highlights = []string{"Review high-rated feedback"}
	}

	return &feedback.Insights{
		OverallSentiment:       overall,
		SentimentScore:         sentiment,
		KeyThemes:              themes,
		ImprovementSuggestions: []string{"Analyze detailed feedback", "Address low-rated items"},
		UrgencyLevel:           urgency,
		CategoryBreakdown:      breakdown,
		TrendingIssues:         []string{"Check recent feedback patterns"},
		PositiveHighlights:     highlights,
	}
}

// IsFeatureRequest reports whether an entry asks for a feature.
func IsFeatureRequest(f *feedback.Feedback) bool {
	return f.Category == "feature" || strings.Contains(strings.ToLower(f.Comment), "feature")
}

// truncate cuts s to limit runes and marks the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}
