package pathcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/cache"
)

// Redis keeps entries as JSON in a shared store so replicas reuse each
// other's searches.
type Redis struct {
	store     cache.Interface
	ttl       time.Duration
	opTimeout time.Duration
}

var _ Cache = (*Redis)(nil)

func NewRedis(store cache.Interface, ttl, opTimeout time.Duration) *Redis {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Redis{store: store, ttl: ttl, opTimeout: opTimeout}
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	raw, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("pathcache: decode %q: %w", key, err)
	}
	return e, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("pathcache: encode %q: %w", key, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.store.Set(ctx, key, raw, r.ttl)
}

func (r *Redis) DropPrefix(ctx context.Context, prefix string) error {
	_, err := r.store.DelPrefix(ctx, prefix)
	return err
}
