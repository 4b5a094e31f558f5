package kafkaconsumer

import (
	"testing"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
	"github.com/mohammed-shakir/osm-grid-router/internal/routing"
)

func newEngine(t *testing.T) *routing.Engine {
	t.Helper()
	f, err := projection.NewFrame(15, model.GeoPoint{Lat: 33.5845, Lon: -101.875}, model.GridConfig{
		Rows: 64, Cols: 64, CellSize: 4, CenterX: 128, CenterY: 128,
	})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	e, err := routing.New(f, routing.Options{Speed: 1})
	if err != nil {
		t.Fatalf("routing.New: %v", err)
	}
	return e
}
