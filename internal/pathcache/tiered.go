package pathcache

import (
	"context"
	"errors"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/observability"
)

// Tiered answers from memory first, then the remote tier, copying remote
// hits into memory. Remote errors are returned alongside the result so the
// caller can log them; they never hide a memory hit.
type Tiered struct {
	local  *Memory
	remote Cache
}

var _ Cache = (*Tiered)(nil)

func NewTiered(local *Memory, remote Cache) *Tiered {
	return &Tiered{local: local, remote: remote}
}

func (t *Tiered) Get(ctx context.Context, key string) (Entry, bool, error) {
	if e, ok, _ := t.local.Get(ctx, key); ok {
		observability.IncPathCache("memory", true)
		return e, true, nil
	}
	observability.IncPathCache("memory", false)
	if t.remote == nil {
		return Entry{}, false, nil
	}

	e, ok, err := t.remote.Get(ctx, key)
	observability.IncPathCache("redis", ok)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	_ = t.local.Put(ctx, key, e)
	return e, true, nil
}

func (t *Tiered) Put(ctx context.Context, key string, e Entry) error {
	_ = t.local.Put(ctx, key, e)
	if t.remote == nil {
		return nil
	}
	return t.remote.Put(ctx, key, e)
}

func (t *Tiered) DropPrefix(ctx context.Context, prefix string) error {
	err := t.local.DropPrefix(ctx, prefix)
	if t.remote != nil {
		err = errors.Join(err, t.remote.DropPrefix(ctx, prefix))
	}
	return err
}
