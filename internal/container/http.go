package container

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/feedback-demo-go/internal/analysis"
	"github.com/serroba/feedback-demo-go/internal/events"
	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/handlers"
	"github.com/serroba/feedback-demo-go/internal/health"
	"github.com/serroba/feedback-demo-go/internal/messaging"
	"github.com/serroba/feedback-demo-go/internal/middleware"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
// Invoking huma.API triggers registration.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		opts := do.MustInvoke[*Options](i)

		router := chi.NewMux()
		router.Use(middleware.CORS(splitOrigins(opts.CORSOrigins)))

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		repo, err := do.Invoke[feedback.Repository](i)
		if err != nil {
			return nil, err
		}

		agent, err := do.Invoke[*analysis.Agent](i)
		if err != nil {
			return nil, err
		}

		policyLimiter := do.MustInvoke[*ratelimit.PolicyLimiter](i)
		publishSubmitted := do.MustInvoke[messaging.Publish[events.FeedbackSubmittedEvent]](i)

		api := humachi.New(router, huma.DefaultConfig("Feedback API", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.PolicyRateLimiter(api, policyLimiter, ratelimit.NewOperationScopeResolver(), logger),
		)

		feedbackHandler := handlers.NewFeedbackHandler(repo, agent, publishSubmitted, logger,
			handlers.WithAITimeout(opts.AITimeout))
		handlers.RegisterRoutes(api, feedbackHandler)

		health.RegisterRoutes(api, health.NewHandler(redisChecker(i), databaseChecker(i)))

		return api, nil
	})
}

// redisChecker returns nil when nothing in this process uses Redis.
func redisChecker(i *do.Injector) health.Checker {
	opts := do.MustInvoke[*Options](i)
	if !opts.Events && opts.CacheTTL <= 0 && opts.RateLimitStore != "redis" {
		return nil
	}

	return health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
}

func databaseChecker(i *do.Injector) health.Checker {
	checker, err := do.InvokeNamed[health.Checker](i, "database")
	if err != nil {
		return nil
	}

	return checker
}

func splitOrigins(raw string) []string {
	var origins []string

	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return origins
}
