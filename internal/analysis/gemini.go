package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/serroba/feedback-demo-go/internal/feedback"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

var errGeminiEmpty = errors.New("gemini returned no candidates")

// GeminiModel asks Gemini for JSON that matches the feedback types.
type GeminiModel struct {
	client   *genai.Client
	analyzer *genai.GenerativeModel
	insights *genai.GenerativeModel
}

// NewGeminiModel creates a client for the named model. An empty key returns ErrAIUnavailable.
func NewGeminiModel(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", ErrAIUnavailable)
	}

	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", ErrAIUnavailable, err)
	}

	return &GeminiModel{
		client:   client,
		analyzer: newJSONModel(client, modelName, analyzerInstruction, summarySchema()),
		insights: newJSONModel(client, modelName, insightsInstruction, insightsSchema()),
	}, nil
}

func newJSONModel(client *genai.Client, name, instruction string, schema *genai.Schema) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema

	return model
}

func (g *GeminiModel) Summarize(ctx context.Context, prompt string) (*feedback.Summary, error) {
	var summary feedback.Summary
	if err := generateJSON(ctx, g.analyzer, prompt, &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}

func (g *GeminiModel) Insights(ctx context.Context, prompt string) (*feedback.Insights, error) {
	var insights feedback.Insights
	if err := generateJSON(ctx, g.insights, prompt, &insights); err != nil {
		return nil, err
	}

	return &insights, nil
}

// Shutdown closes the underlying client.
func (g *GeminiModel) Shutdown() error {
	return g.client.Close()
}

func generateJSON(ctx context.Context, model *genai.GenerativeModel, prompt string, out any) error {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return errGeminiEmpty
	}

	var text strings.Builder

	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	if err := json.Unmarshal([]byte(text.String()), out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}

	return nil
}

func stringArray(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

func summarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"main_concern": {Type: genai.TypeString, Description: "Primary concern or topic"},
			"emotion": {
				Type:        genai.TypeString,
				Description: "Emotional tone: frustrated, satisfied, confused, etc.",
			},
			"priority": {
				Type:        genai.TypeString,
				Description: "Priority level",
				Enum:        []string{PriorityLow, PriorityMedium, PriorityHigh},
			},
			"category": {
				Type:        genai.TypeString,
				Description: "Category: bug, feature, usability, performance, etc.",
			},
			"actionable_items": stringArray("Specific actionable items"),
		},
		Required: []string{"main_concern", "emotion", "priority", "category", "actionable_items"},
	}
}

func insightsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overall_sentiment": {
				Type:        genai.TypeString,
				Description: "Overall sentiment",
				Enum:        []string{SentimentPositive, SentimentNegative, SentimentNeutral},
			},
			"sentiment_score":         {Type: genai.TypeNumber, Description: "Sentiment score between -1 and 1"},
			"key_themes":              stringArray("Main themes or topics mentioned"),
			"improvement_suggestions": stringArray("Specific suggestions for improvement"),
			"urgency_level": {
				Type:        genai.TypeString,
				Description: "Urgency level",
				Enum:        []string{"low", "medium", "high", "critical"},
			},
			"category_breakdown": {
				Type:        genai.TypeObject,
				Description: "Count of feedback by category, keyed by category name",
			},
			"trending_issues":     stringArray("Issues that appear frequently"),
			"positive_highlights": stringArray("What users like most"),
		},
		Required: []string{
			"overall_sentiment", "sentiment_score", "key_themes", "improvement_suggestions",
			"urgency_level", "trending_issues", "positive_highlights",
		},
	}
}

var _ Model = (*GeminiModel)(nil)
