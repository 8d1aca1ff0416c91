// Package container wires the service together with samber/do. Each concern
// registers lazily through a XxxPackage function; services with a Shutdown
// method are closed by injector.Shutdown.
package container

import (
	"fmt"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configures both binaries. humacli fills it from flags and SERVICE_* variables.
type Options struct {
	Port      int    `default:"8888"           help:"Port to listen on"                  short:"p"`
	RedisAddr string `default:"localhost:6379" help:"Redis server address"               short:"r"`
	LogFormat string `default:"console"        help:"Log output format: console or json"`

	DatabaseDriver string        `default:"sqlite"      help:"Feedback storage: memory, sqlite or postgres"`
	DatabasePath   string        `default:"feedback.db" help:"SQLite database file"`
	DatabaseURL    string        `help:"PostgreSQL connection string for the postgres driver"`
	CacheTTL       time.Duration `default:"0s"          help:"Cache feedback reads in Redis for this long; 0 disables"`

	AIMaxCalls       int           `default:"2"              help:"Outbound AI calls allowed per window"`
	AIWindow         time.Duration `default:"60s"            help:"Outbound AI quota window"`
	AITimeout        time.Duration `default:"30s"            help:"Longest an AI-backed request may wait"`
	LimiterRedis     bool          `default:"false"          help:"Share the AI quota across processes through Redis"`
	LimiterRedisURL  string        `help:"Redis URL of the shared AI quota; defaults to REDIS_HOST, REDIS_PORT and REDIS_DB"`
	LimiterKeyPrefix string        `default:"feedback_agent" help:"Key prefix of the shared AI quota"`
	GeminiAPIKey     string        `help:"Gemini API key; heuristics are used when empty"`
	GeminiModel      string        `default:"gemini-1.5-flash" help:"Gemini model name"`

	RateLimitStore string `default:"memory"                help:"Inbound rate limit counters: memory or redis"`
	CORSOrigins    string `default:"http://localhost:3000" help:"Comma-separated origins allowed by CORS"`

	Events          bool          `default:"true"              help:"Publish feedback events to Redis streams"`
	ConsumerGroup   string        `default:"feedback-analysis" help:"Redis stream consumer group of the analysis workers"`
	ConsumerTimeout time.Duration `default:"5m"                help:"Longest a worker may spend on one event"`
}

// Validate rejects option combinations that cannot be wired.
func (o *Options) Validate() error {
	switch o.DatabaseDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if o.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres driver requires a database url", ErrInvalidOptions)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidOptions, o.DatabaseDriver)
	}

	switch o.RateLimitStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown rate limit store %q", ErrInvalidOptions, o.RateLimitStore)
	}

	return nil
}
