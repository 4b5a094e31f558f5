// Package model defines core domain types shared across the service.
package model

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Tag keys used to classify ways.
const (
	TagBuilding = "building"
	TagHighway  = "highway"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.7f, %.7f)", p.Lat, p.Lon)
}

// PlanarPoint is a projected coordinate; X() and Y() are the planar axes.
type PlanarPoint = orb.Point

func Planar(x, y float64) PlanarPoint { return PlanarPoint{x, y} }

type Node struct {
	ID       string   `json:"id"`
	Position GeoPoint `json:"position"`
}

type Tags map[string]struct{}

func NewTags(keys ...string) Tags {
	t := make(Tags, len(keys))
	for _, k := range keys {
		t[k] = struct{}{}
	}
	return t
}

func (t Tags) Has(k string) bool {
	_, ok := t[k]
	return ok
}

type Way struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Tags  Tags   `json:"-"`
}

func (w Way) IsBuilding() bool { return w.Tags.Has(TagBuilding) }

func (w Way) IsHighway() bool { return w.Tags.Has(TagHighway) }

// Highways keeps the ways tagged as highway, in input order.
func Highways(ways []Way) []Way {
	out := make([]Way, 0, len(ways))
	for _, w := range ways {
		if w.IsHighway() {
			out = append(out, w)
		}
	}
	return out
}

// Buildings keeps the ways tagged as building, in input order.
func Buildings(ways []Way) []Way {
	out := make([]Way, 0, len(ways))
	for _, w := range ways {
		if w.IsBuilding() {
			out = append(out, w)
		}
	}
	return out
}

// Cell is a grid coordinate; Row follows the projected Y axis, Col the X axis.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("%d,%d", c.Row, c.Col)
}

// GridConfig describes the occupancy grid laid over the planar frame.
type GridConfig struct {
	Rows     int
	Cols     int
	CellSize float64
	CenterX  float64
	CenterY  float64
}

// RouteRequest is a validated route query. Geo selects which endpoint pair
// is meaningful.
type RouteRequest struct {
	Geo      bool
	FromCell Cell
	ToCell   Cell
	FromGeo  GeoPoint
	ToGeo    GeoPoint
}
