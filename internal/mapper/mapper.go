// Package mapper converts between geographic coordinates and H3 cells.
package mapper

import (
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

// Interface is implemented by mapper/h3.
type Interface interface {
	CellsForPath(points []model.GeoPoint) ([]string, error)
	CellsForBound(b orb.Bound) ([]string, error)
}
