package store

import (
	"fmt"

	"github.com/nhle/tasys/internal/model"
)

// Open builds the Store selected by cfg.Backend.
func Open(cfg model.StateConfig) (Store, error) {
	switch cfg.Backend {
	case model.StateBackendSQLite, "":
		return NewSQLiteStore(cfg.Path)
	case model.StateBackendRedis:
		return NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix), nil
	case model.StateBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
