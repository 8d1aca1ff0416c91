package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
	"go.uber.org/zap"
)

var errMissingOperation = errors.New("missing operation in context")

// clientKey hashes IP and User-Agent so raw client data never reaches the store.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

// clientIP prefers proxy headers and falls back to the peer address.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	addr := ctx.RemoteAddr()

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}

// PolicyRateLimiter returns a Huma middleware that applies policy-based rate limiting.
// The resolver picks the scopes of each request and every limit of every scope must pass.
//
// Operation metadata under ratelimit.MetadataKey can disable limiting, override
// the scope, or replace the policy with endpoint-specific limits.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := operationPath(ctx)

		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil {
			if handleEndpointConfig(api, ctx, limiter, cfg, path, logger, next) {
				return
			}
		}

		allowed, exceeded, err := limiter.Allow(ctx.Context(), clientKey(ctx), resolver.Resolve(ctx))
		if err != nil {
			logger.Error("rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			handleRateLimitExceeded(api, ctx, exceeded, path, logger)

			return
		}

		next(ctx)
	}
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// handleEndpointConfig applies per-endpoint settings.
// It returns true when the request has been handled.
func handleEndpointConfig(
	api huma.API,
	ctx huma.Context,
	limiter *ratelimit.PolicyLimiter,
	cfg *ratelimit.EndpointConfig,
	path string,
	logger *zap.Logger,
	next func(huma.Context),
) bool {
	if cfg.Disabled {
		logger.Debug("rate limiting disabled for endpoint",
			zap.String("path", path), zap.String("method", ctx.Method()))
		next(ctx)

		return true
	}

	if len(cfg.Limits) == 0 {
		return false
	}

	// Custom counters are keyed by route template, so /feedback/1 and
	// /feedback/2 share one budget per client.
	if ctx.Operation() == nil {
		logger.Error("custom rate limit check failed", zap.Error(errMissingOperation))
		_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", errMissingOperation)

		return true
	}

	allowed, exceeded, err := limiter.AllowLimits(ctx.Context(), clientKey(ctx), path, cfg.Limits)
	if err != nil {
		logger.Error("custom rate limit check failed", zap.String("path", path), zap.Error(err))
		_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

		return true
	}

	if !allowed {
		handleRateLimitExceeded(api, ctx, exceeded, path, logger)

		return true
	}

	next(ctx)

	return true
}

// handleRateLimitExceeded logs the broken limit and writes a 429 with Retry-After.
func handleRateLimitExceeded(
	api huma.API,
	ctx huma.Context,
	exceeded *ratelimit.LimitExceeded,
	path string,
	logger *zap.Logger,
) {
	msg := "rate limit exceeded"

	if exceeded != nil {
		msg = fmt.Sprintf("rate limit exceeded: %s scope, %d/%d requests in %s",
			exceeded.Scope, exceeded.Count, exceeded.Config.Max, exceeded.Config.Window)

		logger.Warn("rate limit exceeded",
			zap.String("path", path),
			zap.String("method", ctx.Method()),
			zap.String("scope", string(exceeded.Scope)),
			zap.Int64("count", exceeded.Count),
			zap.Int64("max", exceeded.Config.Max),
			zap.Duration("window", exceeded.Config.Window),
			zap.String("client_ip", clientIP(ctx)),
		)

		seconds := int(math.Ceil(exceeded.Config.Window.Seconds()))
		ctx.SetHeader("Retry-After", strconv.Itoa(seconds))
	}

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}
