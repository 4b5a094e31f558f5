// Package graph exposes the cells of a frozen occupancy grid as searchable
// nodes with 8-way adjacency.
package graph

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/grid"
)

// ErrNotRasterized is returned when a graph is built over a grid that is
// still being written.
var ErrNotRasterized = errors.New("graph: grid has not been frozen after rasterization")

// DiagonalCost selects the price of a diagonal step.
type DiagonalCost int

const (
	// Uniform charges diagonal steps like cardinal ones. Heuristic then
	// overestimates (Euclidean >= Chebyshev), so A* may return a path longer
	// than the fewest-steps one.
	Uniform DiagonalCost = iota
	// Euclidean charges sqrt(2) per diagonal step.
	Euclidean
)

func (d DiagonalCost) String() string {
	if d == Euclidean {
		return "euclidean"
	}
	return "uniform"
}

func ParseDiagonalCost(s string) (DiagonalCost, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return Uniform, nil
	case "euclidean", "sqrt2":
		return Euclidean, nil
	default:
		return Uniform, fmt.Errorf("unknown diagonal cost %q (want uniform|euclidean)", s)
	}
}

// Traversal decides which occupancy value is walkable.
type Traversal int

const (
	// AvoidOccupied treats rasterized cells as walls.
	AvoidOccupied Traversal = iota
	// FollowOccupied only walks rasterized cells, i.e. agents stay on roads.
	FollowOccupied
)

func (t Traversal) String() string {
	if t == FollowOccupied {
		return "follow"
	}
	return "avoid"
}

func ParseTraversal(s string) (Traversal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "avoid":
		return AvoidOccupied, nil
	case "follow", "roads":
		return FollowOccupied, nil
	default:
		return AvoidOccupied, fmt.Errorf("unknown traversal %q (want avoid|follow)", s)
	}
}

type Options struct {
	Diagonal  DiagonalCost
	Traversal Traversal
}

type Edge struct {
	To   model.Cell
	Cost float64
}

type offset struct {
	dr, dc   int
	diagonal bool
}

// Cardinal moves first, then diagonals; search tie-breaking depends on this order.
var offsets = [...]offset{
	{dr: -1, dc: 0},
	{dr: 1, dc: 0},
	{dr: 0, dc: -1},
	{dr: 0, dc: 1},
	{dr: -1, dc: -1, diagonal: true},
	{dr: 1, dc: -1, diagonal: true},
	{dr: -1, dc: 1, diagonal: true},
	{dr: 1, dc: 1, diagonal: true},
}

type Graph struct {
	g    *grid.Grid
	opts Options
}

func New(g *grid.Grid, opts Options) (*Graph, error) {
	if g == nil {
		return nil, errors.New("graph: nil grid")
	}
	if !g.Frozen() {
		return nil, ErrNotRasterized
	}
	return &Graph{g: g, opts: opts}, nil
}

func (gr *Graph) Grid() *grid.Grid { return gr.g }

func (gr *Graph) Options() Options { return gr.opts }

func (gr *Graph) InBounds(c model.Cell) bool { return gr.g.InBounds(c.Row, c.Col) }

// Weight is the cost of entering c: 1 for walkable cells, 0 for walls and
// cells outside the grid.
func (gr *Graph) Weight(c model.Cell) float64 {
	if !gr.InBounds(c) {
		return 0
	}
	v := gr.g.At(c.Row, c.Col)
	if gr.opts.Traversal == FollowOccupied {
		if v == grid.Occupied {
			return 1
		}
		return 0
	}
	if v == grid.Free {
		return 1
	}
	return 0
}

func (gr *Graph) Passable(c model.Cell) bool { return gr.Weight(c) > 0 }

// Neighbors returns the passable in-bounds neighbours of c.
func (gr *Graph) Neighbors(c model.Cell) []Edge {
	return gr.AppendNeighbors(make([]Edge, 0, len(offsets)), c)
}

// AppendNeighbors is Neighbors writing into buf, for allocation-free loops.
func (gr *Graph) AppendNeighbors(buf []Edge, c model.Cell) []Edge {
	for _, o := range offsets {
		n := model.Cell{Row: c.Row + o.dr, Col: c.Col + o.dc}
		w := gr.Weight(n)
		if w == 0 {
			continue
		}
		cost := w
		if o.diagonal && gr.opts.Diagonal == Euclidean {
			cost = w * math.Sqrt2
		}
		buf = append(buf, Edge{To: n, Cost: cost})
	}
	return buf
}

// Heuristic is the straight-line distance between two cells in cell units.
func Heuristic(a, b model.Cell) float64 {
	dr := float64(a.Row - b.Row)
	dc := float64(a.Col - b.Col)
	return math.Sqrt(dr*dr + dc*dc)
}
