// Package osmxml turns an OSM XML extract into the ways the rasterizer
// consumes.
package osmxml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	osmscan "github.com/paulmach/osm/osmxml"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

var ErrEmpty = errors.New("osmxml: document has no ways")

// Extract is a decoded document. Ways keep document order; refs that name a
// node missing from the document are dropped and counted in Unresolved.
type Extract struct {
	Ways       []model.Way
	Nodes      int
	Unresolved int
}

func (e Extract) Highways() []model.Way { return model.Highways(e.Ways) }

func (e Extract) Buildings() []model.Way { return model.Buildings(e.Ways) }

// Bounds is the lon/lat extent of every resolved way node.
func (e Extract) Bounds() orb.Bound {
	var b orb.Bound
	first := true
	for _, w := range e.Ways {
		for _, n := range w.Nodes {
			p := orb.Point{n.Position.Lon, n.Position.Lat}
			if first {
				b = p.Bound()
				first = false
				continue
			}
			b = b.Extend(p)
		}
	}
	return b
}

// Decode reads the whole document. Only tag keys are kept on ways.
func Decode(ctx context.Context, r io.Reader) (Extract, error) {
	sc := osmscan.New(ctx, r)
	defer func() { _ = sc.Close() }()

	nodes := make(map[osm.NodeID]model.GeoPoint)
	var raw []*osm.Way
	for sc.Scan() {
		switch o := sc.Object().(type) {
		case *osm.Node:
			nodes[o.ID] = model.GeoPoint{Lat: o.Lat, Lon: o.Lon}
		case *osm.Way:
			raw = append(raw, o)
		}
	}
	if err := sc.Err(); err != nil {
		return Extract{}, fmt.Errorf("osmxml: scan: %w", err)
	}
	if len(raw) == 0 {
		return Extract{Nodes: len(nodes)}, ErrEmpty
	}

	ex := Extract{Ways: make([]model.Way, 0, len(raw)), Nodes: len(nodes)}
	for _, w := range raw {
		way := model.Way{
			ID:    strconv.FormatInt(int64(w.ID), 10),
			Tags:  tagKeys(w.Tags),
			Nodes: make([]model.Node, 0, len(w.Nodes)),
		}
		for _, wn := range w.Nodes {
			pos, ok := nodes[wn.ID]
			if !ok {
				ex.Unresolved++
				continue
			}
			way.Nodes = append(way.Nodes, model.Node{
				ID:       strconv.FormatInt(int64(wn.ID), 10),
				Position: pos,
			})
		}
		ex.Ways = append(ex.Ways, way)
	}
	return ex, nil
}

func tagKeys(tags osm.Tags) model.Tags {
	keys := make([]string, 0, len(tags))
	for _, t := range tags {
		keys = append(keys, t.Key)
	}
	return model.NewTags(keys...)
}
