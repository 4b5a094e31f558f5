// Package h3mapper tags routes and grid extents with H3 cells so clients can
// join them against other H3-indexed data.
package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/mapper"
)

type Mapper struct {
	res int
}

var _ mapper.Interface = (*Mapper)(nil)

func New(res int) (*Mapper, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	return &Mapper{res: res}, nil
}

func (m *Mapper) Res() int { return m.res }

// CellsForPath returns the H3 cells a path visits, in visiting order. Runs of
// points inside the same cell collapse to one entry; revisits are kept.
func (m *Mapper) CellsForPath(points []model.GeoPoint) ([]string, error) {
	out := make([]string, 0, len(points))
	var prev h3.Cell
	for i, p := range points {
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, m.res)
		if err != nil {
			return nil, fmt.Errorf("h3 point %d %v: %w", i, p, err)
		}
		if i > 0 && c == prev {
			continue
		}
		out = append(out, c.String())
		prev = c
	}
	return out, nil
}

// CellsForBound covers a lon/lat bound with cells, sorted.
func (m *Mapper) CellsForBound(b orb.Bound) ([]string, error) {
	if b.IsEmpty() {
		return nil, errors.New("empty bound")
	}
	outer := h3.GeoLoop{
		{Lat: b.Min.Lat(), Lng: b.Min.Lon()},
		{Lat: b.Min.Lat(), Lng: b.Max.Lon()},
		{Lat: b.Max.Lat(), Lng: b.Max.Lon()},
		{Lat: b.Max.Lat(), Lng: b.Min.Lon()},
	}
	return polyfill(outer, m.res)
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// polyfill computes unique cells and returns them sorted for determinism.
func polyfill(outer h3.GeoLoop, res int) ([]string, error) {
	indexes, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make([]string, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
