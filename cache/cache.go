// Package cache stores recent connector results so repeated correlations of
// similar signals do not hammer rate-limited public APIs.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

// Store is a byte-oriented TTL cache. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// New returns the store selected by cfg.Type, or nil for "none".
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "redis":
		r, err := NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
