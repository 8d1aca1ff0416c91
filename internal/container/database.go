package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do"
	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/health"
	"github.com/serroba/feedback-demo-go/internal/store"
	"go.uber.org/zap"
)

// SQLitePackage provides the SQLite store, creating the schema on first use.
func SQLitePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.SQLiteStore, error) {
		opts := do.MustInvoke[*Options](i)

		return store.OpenSQLite(context.Background(), opts.DatabasePath)
	})
}

// PostgresPackage provides the PostgreSQL store backed by a pgx pool.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.PostgresStore, error) {
		opts := do.MustInvoke[*Options](i)
		ctx := context.Background()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		s := store.NewPostgresStore(pool)

		if err := s.Migrate(ctx); err != nil {
			pool.Close()

			return nil, err
		}

		return s, nil
	})
}

// RepositoryPackage provides the feedback repository for the configured driver,
// wrapped in the Redis cache when a cache TTL is set. It also provides the
// database health checker.
func RepositoryPackage(i *do.Injector) {
	SQLitePackage(i)
	PostgresPackage(i)

	do.Provide(i, func(i *do.Injector) (feedback.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		base, err := baseRepository(i, opts.DatabaseDriver)
		if err != nil {
			return nil, err
		}

		logger.Info("feedback store ready", zap.String("driver", opts.DatabaseDriver))

		if opts.CacheTTL <= 0 {
			return base, nil
		}

		client := do.MustInvoke[*Redis](i).Client

		return store.NewRedisCacheRepository(base, client, opts.CacheTTL), nil
	})

	do.ProvideNamed(i, "database", func(i *do.Injector) (health.Checker, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.DatabaseDriver {
		case DriverSQLite:
			return do.Invoke[*store.SQLiteStore](i)
		case DriverPostgres:
			return do.Invoke[*store.PostgresStore](i)
		default:
			return nil, nil
		}
	})
}

func baseRepository(i *do.Injector, driver string) (feedback.Repository, error) {
	switch driver {
	case DriverMemory:
		return store.NewMemoryStore(), nil
	case DriverSQLite:
		return do.Invoke[*store.SQLiteStore](i)
	case DriverPostgres:
		return do.Invoke[*store.PostgresStore](i)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", ErrInvalidOptions, driver)
	}
}
