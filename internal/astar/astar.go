// Package astar finds least-cost paths between grid cells.
package astar

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/graph"
)

var (
	ErrOutOfBounds     = errors.New("astar: endpoint outside grid")
	ErrBlockedEndpoint = errors.New("astar: endpoint is not passable")
	ErrIterationLimit  = errors.New("astar: iteration limit reached")
)

const ctxCheckEvery = 1024

type Options struct {
	// MaxIterations caps node expansions; 0 means unlimited.
	MaxIterations int
	// Closest returns the path to the reached cell nearest the goal when the
	// goal itself is unreachable. Found stays false.
	Closest bool
}

// Result holds the path from start (exclusive) to goal (inclusive). An empty
// path with Found=false means the goal is unreachable.
type Result struct {
	Path     []model.Cell
	Cost     float64
	Expanded int
	// Reopened counts closed cells put back on the open set after a cheaper
	// route to them turned up.
	Reopened int
	Found    bool
}

type state uint8

const (
	unseen state = iota
	open
	closed
)

// node is the per-search record for one cell; the map holding them is
// dropped when Search returns.
type node struct {
	cell      model.Cell
	g, h, f   float64
	parent    model.Cell
	hasParent bool
	state     state
	seq       uint64
	index     int
}

// Search runs A* on gr from start to goal.
func Search(ctx context.Context, gr *graph.Graph, start, goal model.Cell, opts Options) (Result, error) {
	if gr == nil {
		return Result{}, errors.New("astar: nil graph")
	}
	for _, ep := range []struct {
		name string
		c    model.Cell
	}{{"start", start}, {"goal", goal}} {
		if !gr.InBounds(ep.c) {
			return Result{}, fmt.Errorf("%w: %s %v", ErrOutOfBounds, ep.name, ep.c)
		}
		if !gr.Passable(ep.c) {
			return Result{}, fmt.Errorf("%w: %s %v", ErrBlockedEndpoint, ep.name, ep.c)
		}
	}

	s := &search{nodes: make(map[model.Cell]*node)}
	first := s.get(start)
	first.h = graph.Heuristic(start, goal)
	first.f = first.h
	s.push(first)
	closest := first

	edges := make([]graph.Edge, 0, 8)
	expanded := 0
	for s.open.Len() > 0 {
		if expanded%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{Expanded: expanded}, fmt.Errorf("astar: %w", err)
			}
		}
		if opts.MaxIterations > 0 && expanded >= opts.MaxIterations {
			return Result{Expanded: expanded}, fmt.Errorf("%w (%d)", ErrIterationLimit, opts.MaxIterations)
		}

		cur := heap.Pop(&s.open).(*node)
		expanded++
		if cur.cell == goal {
			return Result{Path: s.pathTo(cur, start), Cost: cur.g, Expanded: expanded, Reopened: s.reopened, Found: true}, nil
		}
		cur.state = closed

		edges = gr.AppendNeighbors(edges[:0], cur.cell)
		for _, e := range edges {
			nb, ok := s.relax(cur, e, goal)
			if !ok {
				continue
			}
			if nb.h < closest.h || (nb.h == closest.h && nb.g < closest.g) {
				closest = nb
			}
		}
	}

	res := Result{Expanded: expanded, Reopened: s.reopened}
	if opts.Closest && closest != first {
		res.Path = s.pathTo(closest, start)
		res.Cost = closest.g
	}
	return res, nil
}

type search struct {
	nodes    map[model.Cell]*node
	open     openSet
	seq      uint64
	reopened int
}

func (s *search) get(c model.Cell) *node {
	n, ok := s.nodes[c]
	if !ok {
		n = &node{cell: c, index: -1}
		s.nodes[c] = n
	}
	return n
}

// relax offers the route cur -> e.To. A neighbour already open or closed at
// an equal or lower g is left alone; otherwise its parent and g are replaced
// and it goes (back) onto the open set.
func (s *search) relax(cur *node, e graph.Edge, goal model.Cell) (*node, bool) {
	nb := s.get(e.To)
	g := cur.g + e.Cost
	if nb.state != unseen && g >= nb.g {
		return nb, false
	}
	switch nb.state {
	case unseen:
		nb.h = graph.Heuristic(nb.cell, goal)
	case closed:
		s.reopened++
	}
	nb.parent, nb.hasParent = cur.cell, true
	nb.g = g
	nb.f = g + nb.h
	if nb.state == open {
		nb.seq = s.nextSeq()
		heap.Fix(&s.open, nb.index)
	} else {
		s.push(nb)
	}
	return nb, true
}

func (s *search) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *search) push(n *node) {
	n.state = open
	n.seq = s.nextSeq()
	heap.Push(&s.open, n)
}

// pathTo follows parent links back to start, which is left out.
func (s *search) pathTo(end *node, start model.Cell) []model.Cell {
	path := make([]model.Cell, 0)
	for n := end; n.cell != start; {
		path = append(path, n.cell)
		if !n.hasParent {
			break
		}
		n = s.nodes[n.parent]
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
