// Package cache defines the byte-level store behind the shared path cache.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// DelPrefix removes every key starting with prefix and returns how many
	// were deleted.
	DelPrefix(ctx context.Context, prefix string) (int, error)
}
