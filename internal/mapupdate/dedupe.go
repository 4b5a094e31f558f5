package mapupdate

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedupe remembers the highest applied Seq per source. Fresh and Record are
// split so that a failed apply can be retried.
type Dedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func NewDedupe(size int) *Dedupe {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, uint64](size)
	return &Dedupe{lru: c}
}

// Fresh reports whether seq is newer than anything applied for source.
func (d *Dedupe) Fresh(source string, seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(source); ok && seq <= last {
		return false
	}
	return true
}

func (d *Dedupe) Record(source string, seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(source); ok && seq <= last {
		return
	}
	d.lru.Add(source, seq)
}
