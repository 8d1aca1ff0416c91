package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/feedback-demo-go/internal/handlers"
)

// RequestMeta stores the client IP and User-Agent on the request context so
// handlers can attach them to published events.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
		}

		next(huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta)))
	}
}
