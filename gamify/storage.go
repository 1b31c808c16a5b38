package gamify

import (
	"context"
	"fmt"

	"skillforge/adapters/jsonfile"
	mem "skillforge/adapters/memory"
	redisAdapter "skillforge/adapters/redis"
	sqlxAdapter "skillforge/adapters/sqlx"
	"skillforge/config"
	"skillforge/engine"
)

// OpenStorage creates the storage adapter named by cfg.Adapter. Adapters
// holding connections implement io.Closer.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (engine.Storage, error) {
	switch cfg.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Redis)
	case "sql":
		return sqlxAdapter.New(ctx, cfg.SQL)
	case "file":
		return jsonfile.New(cfg.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Adapter)
	}
}
