package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/feedback-demo-go/internal/container"
	"github.com/serroba/feedback-demo-go/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	opts := &container.Options{
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		DatabaseDriver:   getEnv("DATABASE_DRIVER", container.DriverSQLite),
		DatabasePath:     getEnv("DATABASE_PATH", "feedback.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AIMaxCalls:       getEnvInt("AI_MAX_CALLS", 2),
		AIWindow:         getEnvDuration("AI_WINDOW", time.Minute),
		LimiterRedis:     getEnvBool("LIMITER_REDIS", false),
		LimiterRedisURL:  getEnv("LIMITER_REDIS_URL", ""),
		LimiterKeyPrefix: getEnv("LIMITER_KEY_PREFIX", "feedback_agent"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		RateLimitStore:   "memory",
		Events:           getEnvBool("EVENTS", true),
		ConsumerGroup:    getEnv("CONSUMER_GROUP", "feedback-analysis"),
		ConsumerTimeout:  getEnvDuration("CONSUMER_TIMEOUT", 5*time.Minute),
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.RepositoryPackage(injector)
	container.RateLimitPackage(injector)
	container.AnalyzerPackage(injector)
	container.PublisherGroupPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)

	if err := opts.Validate(); err != nil {
		logger.Fatal("invalid options", zap.Error(err))
	}

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}

	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}

	return defaultValue
}
