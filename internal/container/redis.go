package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

// Redis owns the client shared by the cache, counters and health checks.
type Redis struct {
	Client *redis.Client
}

func (r *Redis) Shutdown() error {
	return r.Client.Close()
}

// RedisPackage provides the shared Redis connection. The client dials lazily.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		return &Redis{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}
