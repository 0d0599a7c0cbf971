package interfaces

import (
	"context"
	"time"
)

// Cache is the slice of the cache the repositories need. Implemented by
// pkg/cache.RedisCache; repositories must tolerate a nil Cache.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
