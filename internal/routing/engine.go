// Package routing owns the published occupancy grid and answers route
// queries against it. Rebuilds produce a new immutable snapshot that is
// swapped in atomically, so searches never observe a grid being written.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-grid-router/internal/astar"
	"github.com/mohammed-shakir/osm-grid-router/internal/cache/keys"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/observability"
	"github.com/mohammed-shakir/osm-grid-router/internal/graph"
	"github.com/mohammed-shakir/osm-grid-router/internal/grid"
	"github.com/mohammed-shakir/osm-grid-router/internal/logger"
	"github.com/mohammed-shakir/osm-grid-router/internal/mapper"
	"github.com/mohammed-shakir/osm-grid-router/internal/pathcache"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
	"github.com/mohammed-shakir/osm-grid-router/internal/raster"
)

var ErrNotReady = errors.New("routing: no grid has been built yet")

type Options struct {
	Speed  float64
	Graph  graph.Options
	Search astar.Options
	// Cache and H3 are optional.
	Cache  pathcache.Cache
	H3     mapper.Interface
	Logger *slog.Logger
}

// Snapshot is one published grid. Nothing in it changes after publication.
type Snapshot struct {
	Version  uint64
	Grid     *grid.Grid
	Graph    *graph.Graph
	Frame    projection.Frame
	Stats    raster.Stats
	Source   string
	Coverage []string
	BuiltAt  time.Time
}

type Route struct {
	GridVersion uint64
	From, To    model.Cell
	Found       bool
	Cost        float64
	Expanded    int
	Cells       []model.Cell
	World       []model.PlanarPoint
	Geo         []model.GeoPoint
	H3Cells     []string
	Cached      bool
}

type Engine struct {
	frame  projection.Frame
	opts   Options
	rast   *raster.Rasterizer
	policy string
	log    *slog.Logger

	// mu serializes writers; readers only load snap.
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

func New(frame projection.Frame, opts Options) (*Engine, error) {
	r, err := raster.New(frame, opts.Speed)
	if err != nil {
		return nil, err
	}
	if _, err := grid.New(frame.Grid.Rows, frame.Grid.Cols); err != nil {
		return nil, err
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		frame: frame,
		opts:  opts,
		rast:  r,
		policy: fmt.Sprintf("%s|%s|max=%d|closest=%t",
			opts.Graph.Traversal, opts.Graph.Diagonal, opts.Search.MaxIterations, opts.Search.Closest),
		log: lg,
	}, nil
}

func (e *Engine) Frame() projection.Frame { return e.frame }

func (e *Engine) Snapshot() *Snapshot { return e.snap.Load() }

func (e *Engine) Ready() bool { return e.snap.Load() != nil }

// Readiness reports whether a grid is published and its version in hex.
func (e *Engine) Readiness() (bool, string) {
	snap := e.snap.Load()
	if snap == nil {
		return false, ""
	}
	return true, strconv.FormatUint(snap.Version, 16)
}

// Build rasterizes ways onto an empty grid and publishes it.
func (e *Engine) Build(ctx context.Context, ways []model.Way, source string) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := grid.New(e.frame.Grid.Rows, e.frame.Grid.Cols)
	if err != nil {
		return nil, err
	}
	return e.publish(ctx, "build", g, raster.Stats{}, ways, source)
}

// Append rasterizes ways on top of the current grid. Cells are only ever
// added, so routes on the previous grid may become blocked but never the
// reverse. With no grid published yet, ways go onto an empty grid.
func (e *Engine) Append(ctx context.Context, ways []model.Way, source string) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	if cur == nil {
		g, err := grid.New(e.frame.Grid.Rows, e.frame.Grid.Cols)
		if err != nil {
			return nil, err
		}
		return e.publish(ctx, "append", g, raster.Stats{}, ways, source)
	}
	return e.publish(ctx, "append", cur.Grid.Clone(), cur.Stats, ways, source)
}

func (e *Engine) publish(ctx context.Context, kind string, g *grid.Grid, base raster.Stats, ways []model.Way, source string) (*Snapshot, error) {
	start := time.Now()
	st, err := e.rast.Rasterize(g, ways)
	if err != nil {
		observability.ObserveGridBuild(kind, err, 0, 0, 0)
		return nil, fmt.Errorf("routing: %s: %w", kind, err)
	}
	g.Freeze()
	gr, err := graph.New(g, e.opts.Graph)
	if err != nil {
		observability.ObserveGridBuild(kind, err, 0, 0, 0)
		return nil, fmt.Errorf("routing: %s: %w", kind, err)
	}
	took := time.Since(start)
	if st.Rejected > 0 {
		e.log.WarnContext(ctx, "skipped unprojectable nodes", "kind", kind, "rejected", st.Rejected)
	}

	total := base
	total.Add(st)

	snap := &Snapshot{
		Version: g.Fingerprint(),
		Grid:    g,
		Graph:   gr,
		Frame:   e.frame,
		Stats:   total,
		Source:  source,
		BuiltAt: time.Now().UTC(),
	}
	if e.opts.H3 != nil {
		cov, err := e.opts.H3.CellsForBound(e.geoBound())
		if err != nil {
			e.log.WarnContext(ctx, "h3 coverage failed", "err", err)
		}
		snap.Coverage = cov
	}

	prev := e.snap.Swap(snap)
	occupied := g.Occupied()
	observability.ObserveGridBuild(kind, nil, took, st.Marked, occupied)

	ctx = logger.WithGridVersion(ctx, snap.Version)
	e.log.InfoContext(ctx, "grid published",
		"kind", kind,
		"source", source,
		"highways", st.Highways,
		"buildings", st.Buildings,
		"marked", st.Marked,
		"occupied", occupied,
		"took", took)

	if prev != nil && prev.Version != snap.Version && e.opts.Cache != nil {
		if err := e.opts.Cache.DropPrefix(ctx, keys.GridPrefix(prev.Version)); err != nil {
			e.log.WarnContext(ctx, "dropping stale routes failed", "err", err)
		}
	}
	return snap, nil
}

// geoBound is the lon/lat extent covered by the grid.
func (e *Engine) geoBound() orb.Bound {
	a := e.frame.CellToGeo(model.Cell{Row: 0, Col: 0})
	b := e.frame.CellToGeo(model.Cell{Row: e.frame.Grid.Rows - 1, Col: e.frame.Grid.Cols - 1})
	return orb.Point{a.Lon, a.Lat}.Bound().Extend(orb.Point{b.Lon, b.Lat})
}

// Route searches from one cell to another on the current grid.
func (e *Engine) Route(ctx context.Context, from, to model.Cell) (Route, error) {
	snap := e.snap.Load()
	if snap == nil {
		return Route{}, ErrNotReady
	}
	ctx = logger.WithGridVersion(ctx, snap.Version)
	rt := Route{GridVersion: snap.Version, From: from, To: to}

	key := keys.RouteKey(snap.Version, e.policy, from, to)
	if e.opts.Cache != nil {
		ent, ok, err := e.opts.Cache.Get(ctx, key)
		if err != nil {
			e.log.WarnContext(ctx, "path cache get failed", "key", key, "err", err)
		}
		if ok {
			rt.Found, rt.Cost, rt.Expanded, rt.Cells, rt.Cached = ent.Found, ent.Cost, ent.Expanded, ent.Cells, true
			return e.decorate(ctx, snap, rt), nil
		}
	}

	start := time.Now()
	res, err := astar.Search(ctx, snap.Graph, from, to, e.opts.Search)
	took := time.Since(start)
	if err != nil {
		outcome := "error"
		if errors.Is(err, astar.ErrIterationLimit) {
			outcome = "limit"
		}
		observability.ObserveSearch(outcome, took, res.Expanded)
		return Route{}, err
	}
	outcome := "unreachable"
	if res.Found {
		outcome = "found"
	}
	observability.ObserveSearch(outcome, took, res.Expanded)
	e.log.DebugContext(ctx, "route searched",
		"from", from.String(), "to", to.String(),
		"outcome", outcome, "expanded", res.Expanded, "took", took)

	rt.Found, rt.Cost, rt.Expanded, rt.Cells = res.Found, res.Cost, res.Expanded, res.Path
	if e.opts.Cache != nil {
		ent := pathcache.Entry{Found: res.Found, Cost: res.Cost, Expanded: res.Expanded, Cells: res.Path}
		if err := e.opts.Cache.Put(ctx, key, ent); err != nil {
			e.log.WarnContext(ctx, "path cache put failed", "key", key, "err", err)
		}
	}
	return e.decorate(ctx, snap, rt), nil
}

// RouteGeo snaps both coordinates to cells through the frame, then routes.
func (e *Engine) RouteGeo(ctx context.Context, from, to model.GeoPoint) (Route, error) {
	fc, err := e.frame.Cell(from)
	if err != nil {
		return Route{}, fmt.Errorf("from %v: %w", from, err)
	}
	tc, err := e.frame.Cell(to)
	if err != nil {
		return Route{}, fmt.Errorf("to %v: %w", to, err)
	}
	return e.Route(ctx, fc, tc)
}

func (e *Engine) decorate(ctx context.Context, snap *Snapshot, rt Route) Route {
	if rt.Cells == nil {
		rt.Cells = []model.Cell{}
	}
	rt.World = make([]model.PlanarPoint, len(rt.Cells))
	rt.Geo = make([]model.GeoPoint, len(rt.Cells))
	for i, c := range rt.Cells {
		rt.World[i] = snap.Frame.CellToWorld(c)
		rt.Geo[i] = snap.Frame.CellToGeo(c)
	}
	if e.opts.H3 != nil {
		cells, err := e.opts.H3.CellsForPath(rt.Geo)
		if err != nil {
			e.log.WarnContext(ctx, "h3 path tagging failed", "err", err)
		}
		rt.H3Cells = cells
	}
	return rt
}
