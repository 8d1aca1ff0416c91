package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/feedback-demo-go/internal/ratelimit"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	Healthy   = "healthy"
	Unhealthy = "unhealthy"
	NotInUse  = "not configured"
)

const pingDeadline = 2 * time.Second

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a ping function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// RedisChecker adapts redis.Client to Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Handler reports the health of Redis and the feedback database.
// A nil checker marks a dependency the process runs without.
type Handler struct {
	redis    Checker
	database Checker
}

// NewHandler creates a new health handler.
func NewHandler(redis, database Checker) *Handler {
	return &Handler{redis: redis, database: database}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status   string `example:"ok"      json:"status"`
		Redis    string `example:"healthy" json:"redis"`
		Database string `example:"healthy" json:"database"`
	}
}

// Check pings each configured dependency. Any failure degrades the status;
// the endpoint itself always answers 200 so load balancers can read the body.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = StatusOK

	for _, dep := range []struct {
		checker Checker
		result  *string
	}{
		{h.redis, &resp.Body.Redis},
		{h.database, &resp.Body.Database},
	} {
		*dep.result = probe(ctx, dep.checker)
		if *dep.result == Unhealthy {
			resp.Body.Status = StatusDegraded
		}
	}

	return resp, nil
}

func probe(ctx context.Context, checker Checker) string {
	if checker == nil {
		return NotInUse
	}

	ctx, cancel := context.WithTimeout(ctx, pingDeadline)
	defer cancel()

	if err := checker.Ping(ctx); err != nil {
		return Unhealthy
	}

	return Healthy
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"Status"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
