package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/pathflow/internal/cache"
	"github.com/BaSui01/pathflow/internal/database"
	"github.com/BaSui01/pathflow/internal/metrics"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// Dependencies are the connections a backend may need.
type Dependencies struct {
	// Redis is required by the redis backend.
	Redis *cache.Manager
	// Database is required by the sql backend.
	Database *database.PoolManager
	Logger   *zap.Logger
	Metrics  *metrics.Collector
}

// Open returns the run store for backend.
func Open(ctx context.Context, backend string, deps Dependencies) (RunStore, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryRunStore(deps.Metrics), nil
	case BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis run store needs a redis connection")
		}
		return NewRedisRunStore(deps.Redis, 0, deps.Logger, deps.Metrics), nil
	case BackendSQL:
		if deps.Database == nil {
			return nil, fmt.Errorf("sql run store needs a database connection")
		}
		return NewSQLRunStore(ctx, deps.Database, deps.Logger, deps.Metrics)
	default:
		return nil, fmt.Errorf("unknown run store backend %q", backend)
	}
}
