package pathcache

import (
	"context"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/osm-grid-router/internal/cache/redisstore"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

var sampleEntry = Entry{
	Found:    true,
	Cost:     3,
	Expanded: 7,
	Cells:    []model.Cell{{Row: 0, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 2}},
}

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return NewRedis(rc, time.Minute, time.Second), mr
}

func TestMemory_BoundedAndDropPrefix(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	_ = m.Put(ctx, "route:g=1:a", sampleEntry)
	_ = m.Put(ctx, "route:g=1:b", sampleEntry)
	_ = m.Put(ctx, "route:g=2:a", sampleEntry)

	if m.Len() != 2 {
		t.Fatalf("len=%d want 2", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "route:g=1:a"); ok {
		t.Fatalf("oldest entry must be evicted")
	}
	if err := m.DropPrefix(ctx, "route:g=1:"); err != nil {
		t.Fatalf("DropPrefix: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "route:g=1:b"); ok {
		t.Fatalf("entry under dropped prefix still present")
	}
	got, ok, _ := m.Get(ctx, "route:g=2:a")
	if !ok || !reflect.DeepEqual(got, sampleEntry) {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}

func TestMemory_EntriesDoNotShareCells(t *testing.T) {
	m := NewMemory(4)
	ctx := context.Background()

	in := sampleEntry
	in.Cells = append([]model.Cell(nil), sampleEntry.Cells...)
	_ = m.Put(ctx, "k", in)
	in.Cells[0] = model.Cell{Row: 99, Col: 99}

	first, _, _ := m.Get(ctx, "k")
	if !reflect.DeepEqual(first, sampleEntry) {
		t.Fatalf("changing the stored slice leaked into the cache: %+v", first)
	}
	first.Cells[1] = model.Cell{Row: -1, Col: -1}
	first.Cells = first.Cells[:1]

	second, _, _ := m.Get(ctx, "k")
	if !reflect.DeepEqual(second, sampleEntry) {
		t.Fatalf("changing a returned slice leaked into the cache: %+v", second)
	}
}

func TestRedis_RoundTripAndTTL(t *testing.T) {
	r, mr := newRedis(t)
	ctx := context.Background()

	if err := r.Put(ctx, "route:g=1:k", sampleEntry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := r.Get(ctx, "route:g=1:k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, sampleEntry) {
		t.Fatalf("got %+v want %+v", got, sampleEntry)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, err := r.Get(ctx, "route:g=1:k"); ok || err != nil {
		t.Fatalf("expected expiry; ok=%v err=%v", ok, err)
	}
}

func TestRedis_CorruptValue(t *testing.T) {
	r, mr := newRedis(t)
	if err := mr.Set("route:bad", "{not json"); err != nil {
		t.Fatalf("mr.Set: %v", err)
	}
	if _, ok, err := r.Get(context.Background(), "route:bad"); ok || err == nil {
		t.Fatalf("corrupt entry must surface an error, ok=%v err=%v", ok, err)
	}
}

func TestTiered_BackfillsMemory(t *testing.T) {
	remote, _ := newRedis(t)
	local := NewMemory(16)
	tc := NewTiered(local, remote)
	ctx := context.Background()

	if err := remote.Put(ctx, "route:g=1:x", sampleEntry); err != nil {
		t.Fatalf("remote Put: %v", err)
	}
	if _, ok, _ := local.Get(ctx, "route:g=1:x"); ok {
		t.Fatalf("local must start empty")
	}

	got, ok, err := tc.Get(ctx, "route:g=1:x")
	if err != nil || !ok || !reflect.DeepEqual(got, sampleEntry) {
		t.Fatalf("tiered Get: %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := local.Get(ctx, "route:g=1:x"); !ok {
		t.Fatalf("remote hit must back-fill memory")
	}

	if err := tc.DropPrefix(ctx, "route:g=1:"); err != nil {
		t.Fatalf("DropPrefix: %v", err)
	}
	if _, ok, _ := tc.Get(ctx, "route:g=1:x"); ok {
		t.Fatalf("entry survived DropPrefix")
	}
}

func TestTiered_MemoryOnly(t *testing.T) {
	tc := NewTiered(NewMemory(4), nil)
	ctx := context.Background()
	if _, ok, err := tc.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := tc.Put(ctx, "k", Entry{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := tc.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit")
	}
}
