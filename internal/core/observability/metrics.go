package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	gridBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_builds_total",
			Help: "Grid (re)builds by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	gridRasterDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grid_raster_duration_seconds",
			Help:    "Time spent rasterizing ways into a grid.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	gridCellsMarkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_cells_marked_total",
			Help: "Cells newly marked occupied by rasterization.",
		},
	)

	gridOccupiedCells = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_occupied_cells",
			Help: "Occupied cells in the published grid.",
		},
	)

	searchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "route_search_duration_seconds",
			Help:    "A* search latency by outcome.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"outcome"},
	)

	searchExpandedNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_search_expanded_nodes",
			Help:    "Nodes expanded per A* search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	pathCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "path_cache_results_total",
			Help: "Path cache lookups by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Latency of remote cache operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)

	mapUpdateEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_update_events_total",
			Help: "Map update events consumed by outcome.",
		},
		[]string{"op", "outcome"},
	)
)

// Collectors lists the service metrics so they can also be served from a
// dedicated registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		gridBuildsTotal, gridRasterDurationSeconds, gridCellsMarkedTotal, gridOccupiedCells,
		searchDurationSeconds, searchExpandedNodes,
		pathCacheResults, cacheOpDurationSeconds,
		mapUpdateEvents,
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveGridBuild records one build or append; occupied is the published
// grid's count and is ignored when the build failed.
func ObserveGridBuild(kind string, err error, d time.Duration, marked, occupied int) {
	if err != nil {
		gridBuildsTotal.WithLabelValues(kind, "error").Inc()
		return
	}
	gridBuildsTotal.WithLabelValues(kind, "ok").Inc()
	gridRasterDurationSeconds.Observe(d.Seconds())
	gridCellsMarkedTotal.Add(float64(marked))
	gridOccupiedCells.Set(float64(occupied))
}

// ObserveSearch outcome is one of found, unreachable, limit, error.
func ObserveSearch(outcome string, d time.Duration, expanded int) {
	searchDurationSeconds.WithLabelValues(outcome).Observe(d.Seconds())
	searchExpandedNodes.Observe(float64(expanded))
}

func IncPathCache(tier string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	pathCacheResults.WithLabelValues(tier, outcome).Inc()
}

func ObserveCacheOp(op string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpDurationSeconds.WithLabelValues(op, result).Observe(d.Seconds())
}

// IncMapUpdate folds anything but replace and append into op="unknown".
func IncMapUpdate(op, outcome string) {
	if op != "replace" && op != "append" {
		op = "unknown"
	}
	mapUpdateEvents.WithLabelValues(op, outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
