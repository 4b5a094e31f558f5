// Package raster marks the grid cells covered by highway polylines.
package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/grid"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
)

type Stats struct {
	Highways   int `json:"highways"`
	Buildings  int `json:"buildings"`
	Segments   int `json:"segments"`
	Degenerate int `json:"degenerate"`
	Outside    int `json:"outside"`
	Samples    int `json:"samples"`
	Marked     int `json:"marked"`
	// Rejected counts highway nodes the projection refused (|lat| >= 90).
	Rejected   int `json:"rejected"`
}

func (s *Stats) Add(o Stats) {
	s.Highways += o.Highways
	s.Buildings += o.Buildings
	s.Segments += o.Segments
	s.Degenerate += o.Degenerate
	s.Outside += o.Outside
	s.Samples += o.Samples
	s.Marked += o.Marked
	s.Rejected += o.Rejected
}

type Rasterizer struct {
	frame projection.Frame
	speed float64
}

// New returns a rasterizer sampling every speed grid-space units along a segment.
func New(frame projection.Frame, speed float64) (*Rasterizer, error) {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("raster: speed must be a positive finite number, got %v", speed)
	}
	if frame.Grid.CellSize <= 0 {
		return nil, errors.New("raster: cell size must be > 0")
	}
	return &Rasterizer{frame: frame, speed: speed}, nil
}

// Rasterize marks every highway of ways on g. Buildings are counted but not
// drawn. A node the projection rejects is skipped and counted, and the
// segments touching it are not drawn; the rest of the way still is.
func (r *Rasterizer) Rasterize(g *grid.Grid, ways []model.Way) (Stats, error) {
	var st Stats
	if g.Frozen() {
		return st, grid.ErrFrozen
	}
	for _, w := range ways {
		if w.IsBuilding() {
			st.Buildings++
		}
		if !w.IsHighway() {
			continue
		}
		st.Highways++
		runs, rejected := r.lineStrings(w)
		st.Rejected += rejected
		for _, ls := range runs {
			st.Add(r.Line(g, ls))
		}
	}
	return st, nil
}

// lineStrings projects w into grid space, splitting it at rejected nodes.
func (r *Rasterizer) lineStrings(w model.Way) ([]orb.LineString, int) {
	var (
		runs     []orb.LineString
		cur      orb.LineString
		rejected int
	)
	for _, n := range w.Nodes {
		p, err := r.frame.GridSpace(n.Position)
		if err != nil {
			rejected++
			if len(cur) > 1 {
				runs = append(runs, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) > 1 {
		runs = append(runs, cur)
	}
	return runs, rejected
}

// Line marks each consecutive segment of a grid-space polyline.
func (r *Rasterizer) Line(g *grid.Grid, ls orb.LineString) Stats {
	var st Stats
	for i := 0; i+1 < len(ls); i++ {
		st.Add(r.Segment(g, ls[i], ls[i+1]))
	}
	return st
}

// Segment walks from p1 towards p2 in steps of speed units and marks the cell
// under each sample. The walk stops at the first sample where the direction
// to p2 differs from the initial direction on either axis, so p2 itself is
// never sampled. Both points are in grid space (see projection.Frame).
func (r *Rasterizer) Segment(g *grid.Grid, p1, p2 model.PlanarPoint) Stats {
	st := Stats{Segments: 1}
	dirX := p2.X() - p1.X()
	dirY := p2.Y() - p1.Y()
	distance := math.Sqrt(dirX*dirX + dirY*dirY)
	if distance == 0 {
		st.Degenerate++
		return st
	}
	if !r.touchesGrid(g, p1, p2) {
		st.Outside++
		return st
	}

	signX, signY := sign(dirX), sign(dirY)
	stepX := dirX / distance * r.speed
	stepY := dirY / distance * r.speed
	cs := r.frame.Grid.CellSize

	for x, y := p1.X(), p1.Y(); sign(p2.X()-x) == signX && sign(p2.Y()-y) == signY; x, y = x+stepX, y+stepY {
		st.Samples++
		row := projection.Round(y / cs)
		col := projection.Round(x / cs)
		if !g.InBounds(row, col) {
			continue
		}
		if g.At(row, col) == grid.Occupied {
			continue
		}
		if err := g.Set(row, col, grid.Occupied); err == nil {
			st.Marked++
		}
	}
	return st
}

// touchesGrid reports whether the segment's bounding box overlaps the area
// whose samples round into the grid. Segments failing it cannot mark a cell.
func (r *Rasterizer) touchesGrid(g *grid.Grid, p1, p2 model.PlanarPoint) bool {
	half := r.frame.Grid.CellSize / 2
	area := orb.Bound{
		Min: orb.Point{-half, -half},
		Max: orb.Point{float64(g.Cols())*r.frame.Grid.CellSize - half, float64(g.Rows())*r.frame.Grid.CellSize - half},
	}
	return orb.LineString{p1, p2}.Bound().Intersects(area)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
