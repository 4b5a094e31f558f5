package routing

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/mohammed-shakir/osm-grid-router/internal/astar"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/graph"
	h3mapper "github.com/mohammed-shakir/osm-grid-router/internal/mapper/h3"
	"github.com/mohammed-shakir/osm-grid-router/internal/pathcache"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
)

func testFrame(t *testing.T) projection.Frame {
	t.Helper()
	f, err := projection.NewFrame(15, model.GeoPoint{Lat: 33.5845, Lon: -101.875}, model.GridConfig{
		Rows: 32, Cols: 32, CellSize: 4, CenterX: 64, CenterY: 64,
	})
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

// road builds a highway between two cells; cells sharing a row (or column)
// project onto exactly the same latitude (or longitude).
func road(f projection.Frame, id string, a, b model.Cell) model.Way {
	return model.Way{
		ID:   id,
		Tags: model.NewTags(model.TagHighway),
		Nodes: []model.Node{
			{ID: id + "a", Position: f.CellToGeo(a)},
			{ID: id + "b", Position: f.CellToGeo(b)},
		},
	}
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Speed == 0 {
		opts.Speed = 1
	}
	e, err := New(testFrame(t), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

var (
	north = model.Cell{Row: 5, Col: 15}
	south = model.Cell{Row: 15, Col: 15}
)

func TestEngine_NotReady(t *testing.T) {
	e := newEngine(t, Options{})
	ctx := context.Background()
	if e.Ready() || e.Snapshot() != nil {
		t.Fatalf("fresh engine must not be ready")
	}
	if _, err := e.Route(ctx, north, south); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Route err=%v want ErrNotReady", err)
	}
}

func TestEngine_AppendOnEmptyEngineStartsFromBlankGrid(t *testing.T) {
	e := newEngine(t, Options{})
	f := e.Frame()
	ctx := context.Background()
	wall := road(f, "w", model.Cell{Row: 10, Col: 0}, model.Cell{Row: 10, Col: 20})

	first, err := e.Append(ctx, []model.Way{wall}, "update")
	if err != nil {
		t.Fatalf("Append on empty engine: %v", err)
	}
	if !e.Ready() || e.Snapshot() != first {
		t.Fatalf("append must publish a snapshot")
	}

	built := newEngine(t, Options{})
	want, err := built.Build(ctx, []model.Way{wall}, "update")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first.Version != want.Version {
		t.Fatalf("append onto nothing must equal a build: %x vs %x", first.Version, want.Version)
	}
}

func TestEngine_BuildRouteAroundWall(t *testing.T) {
	e := newEngine(t, Options{Cache: pathcache.NewMemory(64)})
	f := e.Frame()
	ctx := context.Background()

	wall := road(f, "w", model.Cell{Row: 10, Col: 2}, model.Cell{Row: 10, Col: 28})
	building := model.Way{ID: "b", Tags: model.NewTags(model.TagBuilding), Nodes: wall.Nodes}
	snap, err := e.Build(ctx, []model.Way{wall, building}, "test")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !e.Ready() || snap.Version == 0 || !snap.Grid.Frozen() {
		t.Fatalf("snapshot not published correctly: %+v", snap)
	}
	if ok, v := e.Readiness(); !ok || v != strconv.FormatUint(snap.Version, 16) {
		t.Fatalf("Readiness()=%v,%q", ok, v)
	}
	if snap.Stats.Highways != 1 || snap.Stats.Buildings != 1 {
		t.Fatalf("stats=%+v", snap.Stats)
	}
	if n := snap.Grid.Occupied(); n < 25 {
		t.Fatalf("occupied=%d, wall not drawn", n)
	}
	for col := 3; col <= 27; col++ {
		if snap.Grid.At(10, col) == 0 {
			t.Fatalf("wall cell (10,%d) free", col)
		}
	}

	rt, err := e.Route(ctx, north, south)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !rt.Found || rt.Cached || rt.GridVersion != snap.Version {
		t.Fatalf("route=%+v", rt)
	}
	if rt.Cells[len(rt.Cells)-1] != south {
		t.Fatalf("route must end at goal")
	}
	for _, c := range rt.Cells {
		if snap.Grid.At(c.Row, c.Col) != 0 {
			t.Fatalf("route crosses occupied cell %v", c)
		}
	}
	if len(rt.World) != len(rt.Cells) || len(rt.Geo) != len(rt.Cells) {
		t.Fatalf("decorations out of step: %d/%d/%d", len(rt.Cells), len(rt.World), len(rt.Geo))
	}
	if rt.World[0] != f.CellToWorld(rt.Cells[0]) {
		t.Fatalf("world point mismatch")
	}

	again, err := e.Route(ctx, north, south)
	if err != nil {
		t.Fatalf("Route (cached): %v", err)
	}
	if !again.Cached || !reflect.DeepEqual(again.Cells, rt.Cells) {
		t.Fatalf("second route must come from cache with the same cells")
	}

	want := append([]model.Cell(nil), rt.Cells...)
	for i := range rt.Cells {
		rt.Cells[i] = model.Cell{}
	}
	for i := range again.Cells {
		again.Cells[i] = model.Cell{Row: -1}
	}
	third, err := e.Route(ctx, north, south)
	if err != nil {
		t.Fatalf("Route (cached): %v", err)
	}
	if !third.Cached || !reflect.DeepEqual(third.Cells, want) {
		t.Fatalf("editing returned routes changed the cached path: %v", third.Cells)
	}
}

func TestEngine_AppendBlocksAndDropsStaleRoutes(t *testing.T) {
	mem := pathcache.NewMemory(64)
	e := newEngine(t, Options{Cache: mem})
	f := e.Frame()
	ctx := context.Background()

	first, err := e.Build(ctx, []model.Way{road(f, "w", model.Cell{Row: 10, Col: 2}, model.Cell{Row: 10, Col: 28})}, "test")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rt, err := e.Route(ctx, north, south); err != nil || !rt.Found {
		t.Fatalf("pre-append route: %+v %v", rt, err)
	}
	if mem.Len() != 1 {
		t.Fatalf("cache len=%d want 1", mem.Len())
	}

	// spans the full width, both ends outside the grid
	closing := road(f, "c", model.Cell{Row: 10, Col: -10}, model.Cell{Row: 10, Col: 40})
	second, err := e.Append(ctx, []model.Way{closing}, "update")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if second.Version == first.Version {
		t.Fatalf("version must change when cells are added")
	}
	if first.Grid.At(10, 0) != 0 {
		t.Fatalf("append must not mutate the previous snapshot")
	}
	if second.Stats.Highways != 2 {
		t.Fatalf("stats must accumulate, got %+v", second.Stats)
	}
	if mem.Len() != 0 {
		t.Fatalf("stale routes not dropped, cache len=%d", mem.Len())
	}

	rt, err := e.Route(ctx, north, south)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if rt.Found || len(rt.Cells) != 0 || rt.Cached {
		t.Fatalf("wall spans the grid, route must be unreachable: %+v", rt)
	}
	if rt.Expanded < 10*32 {
		t.Fatalf("expanded=%d, every cell north of the wall (320) must be visited", rt.Expanded)
	}
}

func TestEngine_RouteGeoAndH3(t *testing.T) {
	m, err := h3mapper.New(10)
	if err != nil {
		t.Fatalf("h3mapper.New: %v", err)
	}
	e := newEngine(t, Options{H3: m})
	f := e.Frame()
	ctx := context.Background()

	snap, err := e.Build(ctx, []model.Way{road(f, "w", model.Cell{Row: 10, Col: 2}, model.Cell{Row: 10, Col: 28})}, "test")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Coverage) == 0 {
		t.Fatalf("expected h3 coverage of the grid extent")
	}

	rt, err := e.RouteGeo(ctx, f.CellToGeo(north), f.CellToGeo(south))
	if err != nil {
		t.Fatalf("RouteGeo: %v", err)
	}
	if rt.From != north || rt.To != south {
		t.Fatalf("geo endpoints snapped to %v -> %v", rt.From, rt.To)
	}
	if !rt.Found || len(rt.H3Cells) == 0 {
		t.Fatalf("route=%+v", rt)
	}

	if _, err := e.RouteGeo(ctx, model.GeoPoint{Lat: 90, Lon: 0}, f.CellToGeo(south)); !errors.Is(err, projection.ErrDomain) {
		t.Fatalf("err=%v want ErrDomain", err)
	}
}

func TestEngine_EndpointErrors(t *testing.T) {
	e := newEngine(t, Options{Search: astar.Options{MaxIterations: 2}})
	f := e.Frame()
	ctx := context.Background()
	if _, err := e.Build(ctx, []model.Way{road(f, "w", model.Cell{Row: 10, Col: 2}, model.Cell{Row: 10, Col: 28})}, "test"); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := e.Route(ctx, model.Cell{Row: 10, Col: 10}, south); !errors.Is(err, astar.ErrBlockedEndpoint) {
		t.Fatalf("err=%v want ErrBlockedEndpoint", err)
	}
	if _, err := e.Route(ctx, model.Cell{Row: 40, Col: 0}, south); !errors.Is(err, astar.ErrOutOfBounds) {
		t.Fatalf("err=%v want ErrOutOfBounds", err)
	}
	if _, err := e.Route(ctx, north, south); !errors.Is(err, astar.ErrIterationLimit) {
		t.Fatalf("err=%v want ErrIterationLimit", err)
	}
}

func TestEngine_FollowRoads(t *testing.T) {
	e := newEngine(t, Options{Graph: graph.Options{Traversal: graph.FollowOccupied}})
	f := e.Frame()
	ctx := context.Background()
	if _, err := e.Build(ctx, []model.Way{road(f, "w", model.Cell{Row: 10, Col: 2}, model.Cell{Row: 10, Col: 28})}, "test"); err != nil {
		t.Fatalf("Build: %v", err)
	}
	rt, err := e.Route(ctx, model.Cell{Row: 10, Col: 4}, model.Cell{Row: 10, Col: 20})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !rt.Found || len(rt.Cells) != 16 {
		t.Fatalf("route along the road: found=%v len=%d", rt.Found, len(rt.Cells))
	}
	for _, c := range rt.Cells {
		if c.Row != 10 {
			t.Fatalf("left the road at %v", c)
		}
	}
}
