package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/astar"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/observability"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
	"github.com/mohammed-shakir/osm-grid-router/internal/raster"
	"github.com/mohammed-shakir/osm-grid-router/internal/routing"
)

// RouteService answers validated route queries; *routing.Engine implements it.
type RouteService interface {
	Route(ctx context.Context, from, to model.Cell) (routing.Route, error)
	RouteGeo(ctx context.Context, from, to model.GeoPoint) (routing.Route, error)
	Snapshot() *routing.Snapshot
}

type routeResponse struct {
	GridVersion string              `json:"grid_version"`
	From        model.Cell          `json:"from"`
	To          model.Cell          `json:"to"`
	Found       bool                `json:"found"`
	Cost        float64             `json:"cost"`
	Expanded    int                 `json:"expanded"`
	Cached      bool                `json:"cached"`
	Cells       []model.Cell        `json:"cells"`
	World       []model.PlanarPoint `json:"world"`
	Geo         []model.GeoPoint    `json:"geo"`
	H3Cells     []string            `json:"h3_cells,omitempty"`
}

type gridResponse struct {
	Version    string       `json:"version"`
	Source     string       `json:"source"`
	BuiltAt    time.Time    `json:"built_at"`
	Rows       int          `json:"rows"`
	Cols       int          `json:"cols"`
	Occupied   int          `json:"occupied"`
	Stats      raster.Stats `json:"stats"`
	H3Coverage []string     `json:"h3_coverage,omitempty"`
	Cells      []string     `json:"cells"`
}

// HandleRoute validates query params and calls the service.
func HandleRoute(logger *slog.Logger, svc RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/route", sw.code, time.Since(start).Seconds())
		}()

		q, err := ParseRouteRequest(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}

		var rt routing.Route
		if q.Geo {
			rt, err = svc.RouteGeo(r.Context(), q.FromGeo, q.ToGeo)
		} else {
			rt, err = svc.Route(r.Context(), q.FromCell, q.ToCell)
		}
		if err != nil {
			code := StatusFor(err)
			if code >= http.StatusInternalServerError {
				logger.ErrorContext(r.Context(), "route failed", "err", err)
			}
			http.Error(sw, err.Error(), code)
			return
		}

		writeJSON(sw, routeResponse{
			GridVersion: strconv.FormatUint(rt.GridVersion, 16),
			From:        rt.From,
			To:          rt.To,
			Found:       rt.Found,
			Cost:        rt.Cost,
			Expanded:    rt.Expanded,
			Cached:      rt.Cached,
			Cells:       rt.Cells,
			World:       rt.World,
			Geo:         rt.Geo,
			H3Cells:     rt.H3Cells,
		})
	}
}

// HandleGrid dumps the published grid, one '0'/'1' string per row.
func HandleGrid(svc RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/grid", sw.code, time.Since(start).Seconds())
		}()

		snap := svc.Snapshot()
		if snap == nil {
			http.Error(sw, routing.ErrNotReady.Error(), http.StatusServiceUnavailable)
			return
		}
		g := snap.Grid
		rows := make([]string, g.Rows())
		for i := range rows {
			rows[i] = g.RowString(i)
		}
		writeJSON(sw, gridResponse{
			Version:    strconv.FormatUint(snap.Version, 16),
			Source:     snap.Source,
			BuiltAt:    snap.BuiltAt,
			Rows:       g.Rows(),
			Cols:       g.Cols(),
			Occupied:   g.Occupied(),
			Stats:      snap.Stats,
			H3Coverage: snap.Coverage,
			Cells:      rows,
		})
	}
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, astar.ErrOutOfBounds),
		errors.Is(err, astar.ErrBlockedEndpoint),
		errors.Is(err, projection.ErrDomain):
		return http.StatusBadRequest
	case errors.Is(err, astar.ErrIterationLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, routing.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseRouteRequest reads from/to as "row,col" or, with coords=geo, as
// "lat,lon".
func ParseRouteRequest(r *http.Request) (model.RouteRequest, error) {
	q := r.URL.Query()
	rawFrom := strings.TrimSpace(q.Get("from"))
	rawTo := strings.TrimSpace(q.Get("to"))
	if rawFrom == "" || rawTo == "" {
		return model.RouteRequest{}, errors.New("missing required parameters: from and to")
	}

	switch strings.ToLower(strings.TrimSpace(q.Get("coords"))) {
	case "", "cell", "grid":
		from, err := parseCell(rawFrom)
		if err != nil {
			return model.RouteRequest{}, fmt.Errorf("invalid from: %w", err)
		}
		to, err := parseCell(rawTo)
		if err != nil {
			return model.RouteRequest{}, fmt.Errorf("invalid to: %w", err)
		}
		return model.RouteRequest{FromCell: from, ToCell: to}, nil
	case "geo", "latlon":
		from, err := parseLatLon(rawFrom)
		if err != nil {
			return model.RouteRequest{}, fmt.Errorf("invalid from: %w", err)
		}
		to, err := parseLatLon(rawTo)
		if err != nil {
			return model.RouteRequest{}, fmt.Errorf("invalid to: %w", err)
		}
		return model.RouteRequest{Geo: true, FromGeo: from, ToGeo: to}, nil
	default:
		return model.RouteRequest{}, fmt.Errorf("unsupported coords %q (want cell|geo)", q.Get("coords"))
	}
}

func splitPair(s string) (string, string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", "", errors.New("expected 2 comma-separated values")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func parseCell(s string) (model.Cell, error) {
	a, b, err := splitPair(s)
	if err != nil {
		return model.Cell{}, err
	}
	row, err := strconv.Atoi(a)
	if err != nil {
		return model.Cell{}, fmt.Errorf("row: %w", err)
	}
	col, err := strconv.Atoi(b)
	if err != nil {
		return model.Cell{}, fmt.Errorf("col: %w", err)
	}
	return model.Cell{Row: row, Col: col}, nil
}

func parseLatLon(s string) (model.GeoPoint, error) {
	a, b, err := splitPair(s)
	if err != nil {
		return model.GeoPoint{}, err
	}
	lat, err := parseFloat(a)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := parseFloat(b)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("lon: %w", err)
	}
	if !(lat > -90 && lat < 90) {
		return model.GeoPoint{}, errors.New("latitude must be in (-90,90)")
	}
	if !(lon >= -180 && lon <= 180) {
		return model.GeoPoint{}, errors.New("longitude must be in [-180,180]")
	}
	return model.GeoPoint{Lat: lat, Lon: lon}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("must be finite")
	}
	return f, nil
}
