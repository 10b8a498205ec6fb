package cache

import (
	"fmt"

	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the backend named in cfg. The redis backend
// needs a connected client; without one it falls back to memory with a
// warning, since duplicates are then only caught per instance.
func NewIdempotencyStore(cfg config.IdempotencyConfig, client redis.UniversalClient, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewInMemoryIdempotencyStore(0), nil
	case "redis":
		if client == nil {
			logger.Warn("Redis unavailable, using in-memory idempotency store")
			return NewInMemoryIdempotencyStore(0), nil
		}
		return NewRedisIdempotencyStore(client, ""), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}
}
