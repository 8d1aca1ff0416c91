package container

import (
	"context"

	"github.com/samber/do"
	"github.com/serroba/feedback-demo-go/internal/analysis"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"go.uber.org/zap"
)

// AnalyzerPackage provides the feedback agent. A Gemini model is attached when
// an API key is configured; otherwise the agent answers from heuristics.
func AnalyzerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*analysis.GeminiModel, error) {
		opts := do.MustInvoke[*Options](i)

		return analysis.NewGeminiModel(context.Background(), opts.GeminiAPIKey, opts.GeminiModel)
	})

	do.Provide(i, func(i *do.Injector) (*analysis.Agent, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)

		if opts.GeminiAPIKey == "" {
			logger.Info("no gemini api key configured, using heuristic analysis")

			return analysis.NewAgent(limiter, logger), nil
		}

		model, err := do.Invoke[*analysis.GeminiModel](i)
		if err != nil {
			return nil, err
		}

		logger.Info("using gemini analysis",
			zap.String("model", opts.GeminiModel),
			zap.Int("maxCalls", opts.AIMaxCalls),
			zap.Duration("window", opts.AIWindow),
		)

		return analysis.NewAgent(limiter, logger, analysis.WithModel(model)), nil
	})
}
