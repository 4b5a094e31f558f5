// Package pathcache stores finished searches so repeated route requests on an
// unchanged grid skip A*.
package pathcache

import (
	"context"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

// Entry is the cached outcome of one search. Unreachable results are cached
// too: they are as expensive to recompute as found ones.
type Entry struct {
	Found    bool         `json:"found"`
	Cost     float64      `json:"cost"`
	Expanded int          `json:"expanded"`
	Cells    []model.Cell `json:"cells"`
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	// DropPrefix forgets every entry whose key starts with prefix.
	DropPrefix(ctx context.Context, prefix string) error
}

// Memory is a bounded in-process LRU. Entries are copied in and out, so
// callers may modify what they pass to Put or get back from Get.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, Entry]
}

var _ Cache = (*Memory)(nil)

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, Entry](size)
	return &Memory{lru: c}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.lru.Get(key)
	e.Cells = slices.Clone(e.Cells)
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, e Entry) error {
	e.Cells = slices.Clone(e.Cells)
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) DropPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
	return nil
}

func (m *Memory) Len() int { return m.lru.Len() }
