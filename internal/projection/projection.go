// Package projection converts WGS84 coordinates into the planar frame the
// occupancy grid is laid over, and planar coordinates into grid cells.
package projection

import (
	"errors"
	"fmt"
	"math"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

// ErrDomain is returned for coordinates the mercator transform is undefined for.
var ErrDomain = errors.New("projection: coordinate outside mercator domain")

const tileSize = 256.0

func deg2rad(deg float64) float64 { return deg * (math.Pi / 180) }

func rad2deg(rad float64) float64 { return rad * (180 / math.Pi) }

func scale(zoom float64) float64 { return (tileSize / math.Pi) * math.Pow(2, zoom) }

// Project maps lon/lat in degrees to web-mercator world pixels at the given zoom.
func Project(lon, lat, zoom float64) (model.PlanarPoint, error) {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return model.PlanarPoint{}, fmt.Errorf("%w: non-finite lon=%v lat=%v", ErrDomain, lon, lat)
	}
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return model.PlanarPoint{}, fmt.Errorf("%w: non-finite zoom %v", ErrDomain, zoom)
	}
	// tan(pi/4 + lat/2) diverges at the poles; float64 hides that as a huge finite value.
	if lat <= -90 || lat >= 90 {
		return model.PlanarPoint{}, fmt.Errorf("%w: lat=%v", ErrDomain, lat)
	}
	k := scale(zoom)
	lonRad := deg2rad(lon)
	latRad := deg2rad(lat)
	x := k * (lonRad + math.Pi)
	y := k * (math.Pi - math.Log(math.Tan(math.Pi/4+latRad/2)))
	return model.Planar(x, y), nil
}

// Unproject is the inverse of Project.
func Unproject(p model.PlanarPoint, zoom float64) model.GeoPoint {
	k := scale(zoom)
	lonRad := p.X()/k - math.Pi
	latRad := 2*math.Atan(math.Exp(math.Pi-p.Y()/k)) - math.Pi/2
	return model.GeoPoint{Lat: rad2deg(latRad), Lon: rad2deg(lonRad)}
}

// Round rounds half up, so -0.5 lands on cell 0 rather than -1.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ToGridCoordinate maps a planar point to the cell it falls in. The result
// may lie outside the grid; callers check bounds before writing.
func ToGridCoordinate(p, origin model.PlanarPoint, cfg model.GridConfig) (row, col int) {
	col = Round((p.X() - origin.X() + cfg.CenterX) / cfg.CellSize)
	row = Round((p.Y() - origin.Y() + cfg.CenterY) / cfg.CellSize)
	return row, col
}
