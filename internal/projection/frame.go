package projection

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

// Frame fixes the zoom, the geographic origin and the grid layout so callers
// convert between geo, grid-space, cell and world coordinates consistently.
type Frame struct {
	Zoom   float64
	Origin model.GeoPoint
	Grid   model.GridConfig

	originXY model.PlanarPoint
}

func NewFrame(zoom float64, origin model.GeoPoint, grid model.GridConfig) (Frame, error) {
	if grid.CellSize <= 0 {
		return Frame{}, errors.New("projection: cell size must be > 0")
	}
	o, err := Project(origin.Lon, origin.Lat, zoom)
	if err != nil {
		return Frame{}, fmt.Errorf("project origin: %w", err)
	}
	return Frame{Zoom: zoom, Origin: origin, Grid: grid, originXY: o}, nil
}

func (f Frame) OriginPlanar() model.PlanarPoint { return f.originXY }

// GridSpace projects g and shifts it so the origin sits at (CenterX, CenterY).
// Dividing by the cell size yields fractional cell coordinates.
func (f Frame) GridSpace(g model.GeoPoint) (model.PlanarPoint, error) {
	p, err := Project(g.Lon, g.Lat, f.Zoom)
	if err != nil {
		return model.PlanarPoint{}, err
	}
	return model.Planar(
		p.X()-f.originXY.X()+f.Grid.CenterX,
		p.Y()-f.originXY.Y()+f.Grid.CenterY,
	), nil
}

func (f Frame) Cell(g model.GeoPoint) (model.Cell, error) {
	p, err := Project(g.Lon, g.Lat, f.Zoom)
	if err != nil {
		return model.Cell{}, err
	}
	row, col := ToGridCoordinate(p, f.originXY, f.Grid)
	return model.Cell{Row: row, Col: col}, nil
}

// CellToWorld returns the renderer position of a cell centre: x grows east,
// y grows north, the origin sits at the frame centre.
func (f Frame) CellToWorld(c model.Cell) model.PlanarPoint {
	return model.Planar(
		float64(c.Col)*f.Grid.CellSize-f.Grid.CenterX,
		f.Grid.CenterY-float64(c.Row)*f.Grid.CellSize,
	)
}

func (f Frame) CellToGeo(c model.Cell) model.GeoPoint {
	p := model.Planar(
		float64(c.Col)*f.Grid.CellSize-f.Grid.CenterX+f.originXY.X(),
		float64(c.Row)*f.Grid.CellSize-f.Grid.CenterY+f.originXY.Y(),
	)
	return Unproject(p, f.Zoom)
}
