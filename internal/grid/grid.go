// Package grid implements the fixed-size occupancy field the road network is
// rasterized onto. A grid is written during construction and frozen before
// any search reads it.
package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Value is the occupancy state of a cell.
type Value uint8

const (
	Free     Value = 0
	Occupied Value = 1
)

var (
	ErrOutOfBounds = errors.New("grid: index out of bounds")
	ErrFrozen      = errors.New("grid: frozen grids are read-only")
	ErrBadValue    = errors.New("grid: value must be 0 or 1")
)

type Grid struct {
	rows, cols int
	cells      []Value
	frozen     atomic.Bool
}

// New returns a rows x cols grid with every cell free.
func New(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid: dimensions must be positive (rows=%d cols=%d)", rows, cols)
	}
	return &Grid{rows: rows, cols: cols, cells: make([]Value, rows*cols)}, nil
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.rows && col < g.cols
}

func (g *Grid) index(row, col int) int { return row*g.cols + col }

func (g *Grid) Set(row, col int, v Value) error {
	if !g.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, row, col, g.rows, g.cols)
	}
	if v != Free && v != Occupied {
		return fmt.Errorf("%w: got %d", ErrBadValue, v)
	}
	if g.frozen.Load() {
		return ErrFrozen
	}
	g.cells[g.index(row, col)] = v
	return nil
}

func (g *Grid) Get(row, col int) (Value, error) {
	if !g.InBounds(row, col) {
		return Free, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, row, col, g.rows, g.cols)
	}
	return g.cells[g.index(row, col)], nil
}

// At is Get without the bounds error; callers must check InBounds first.
func (g *Grid) At(row, col int) Value {
	return g.cells[g.index(row, col)]
}

// Freeze ends the construction phase. It is idempotent.
func (g *Grid) Freeze() { g.frozen.Store(true) }

func (g *Grid) Frozen() bool { return g.frozen.Load() }

// Clone returns an unfrozen copy, used to extend a published grid.
func (g *Grid) Clone() *Grid {
	cp := &Grid{rows: g.rows, cols: g.cols, cells: make([]Value, len(g.cells))}
	copy(cp.cells, g.cells)
	return cp
}

func (g *Grid) Occupied() int {
	n := 0
	for _, v := range g.cells {
		if v == Occupied {
			n++
		}
	}
	return n
}

// Fingerprint hashes dimensions and occupancy; equal grids share a fingerprint.
func (g *Grid) Fingerprint() uint64 {
	d := xxhash.New()
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[:8], uint64(g.rows))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(g.cols))
	_, _ = d.Write(hdr[:])
	buf := make([]byte, len(g.cells))
	for i, v := range g.cells {
		buf[i] = byte(v)
	}
	_, _ = d.Write(buf)
	return d.Sum64()
}

// RowString renders one row as '0'/'1' characters.
func (g *Grid) RowString(row int) string {
	var b strings.Builder
	b.Grow(g.cols)
	for col := 0; col < g.cols; col++ {
		if g.At(row, col) == Occupied {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (g *Grid) String() string {
	var b strings.Builder
	b.Grow(g.rows * (g.cols + 1))
	for row := 0; row < g.rows; row++ {
		b.WriteString(g.RowString(row))
		b.WriteByte('\n')
	}
	return b.String()
}
