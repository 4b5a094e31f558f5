package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/graph"
)

type MapUpdatesCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type SearchCfg struct {
	Traversal     string
	DiagonalCost  string
	MaxIterations int
	Closest       bool
}

type Config struct {
	Addr           string
	RouteTimeout   time.Duration
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	MetricsEnabled bool
	MetricsAddr    string

	MapFile     string
	Origin      model.GeoPoint
	Zoom        float64
	RasterSpeed float64
	Grid        model.GridConfig
	Search      SearchCfg

	PathCacheSize  int
	PathCacheTTL   time.Duration
	RedisAddr      string
	CacheOpTimeout time.Duration
	H3Res          int

	MapUpdates MapUpdatesCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 9)
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		RouteTimeout:   getduration("ROUTE_TIMEOUT", 5*time.Second),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9100"),

		MapFile: getenv("MAP_FILE", "data/map.osm"),
		Origin: model.GeoPoint{
			Lat: getfloat("ORIGIN_LAT", 33.5845),
			Lon: getfloat("ORIGIN_LON", -101.875),
		},
		Zoom:        getfloat("ZOOM", 15),
		RasterSpeed: getfloat("RASTER_SPEED", 1),
		Grid: model.GridConfig{
			Rows:     getint("GRID_ROWS", 128),
			Cols:     getint("GRID_COLS", 256),
			CellSize: getfloat("GRID_CELL_SIZE", 4),
			CenterX:  getfloat("GRID_CENTER_X", 512),
			CenterY:  getfloat("GRID_CENTER_Y", 256),
		},
		Search: SearchCfg{
			Traversal:     getenv("TRAVERSAL", "avoid"),
			DiagonalCost:  getenv("DIAGONAL_COST", "uniform"),
			MaxIterations: getint("SEARCH_MAX_ITERATIONS", 0),
			Closest:       getbool("SEARCH_CLOSEST", false),
		},

		PathCacheSize:  getint("PATH_CACHE_SIZE", 4096),
		PathCacheTTL:   getduration("PATH_CACHE_TTL", 10*time.Minute),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		H3Res:          res,

		MapUpdates: MapUpdatesCfg{
			Enabled: getbool("MAPUPDATES_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "map-updates"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "grid-router"),
		},
	}
}

// Validate reports every field that would make the service unusable.
func (c Config) Validate() error {
	var errs []error
	if c.Grid.Rows <= 0 || c.Grid.Cols <= 0 {
		errs = append(errs, fmt.Errorf("grid dimensions must be positive, got %dx%d", c.Grid.Rows, c.Grid.Cols))
	}
	if c.Grid.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("GRID_CELL_SIZE must be > 0, got %v", c.Grid.CellSize))
	}
	if c.RasterSpeed <= 0 {
		errs = append(errs, fmt.Errorf("RASTER_SPEED must be > 0, got %v", c.RasterSpeed))
	}
	if c.Zoom < 0 || c.Zoom > 30 {
		errs = append(errs, fmt.Errorf("ZOOM out of range [0,30]: %v", c.Zoom))
	}
	if c.Origin.Lat <= -90 || c.Origin.Lat >= 90 {
		errs = append(errs, fmt.Errorf("ORIGIN_LAT out of range: %v", c.Origin.Lat))
	}
	if _, err := graph.ParseTraversal(c.Search.Traversal); err != nil {
		errs = append(errs, err)
	}
	if _, err := graph.ParseDiagonalCost(c.Search.DiagonalCost); err != nil {
		errs = append(errs, err)
	}
	if c.Search.MaxIterations < 0 {
		errs = append(errs, errors.New("SEARCH_MAX_ITERATIONS must be >= 0"))
	}
	if c.RouteTimeout <= 0 {
		errs = append(errs, errors.New("ROUTE_TIMEOUT must be > 0"))
	}
	if c.MapUpdates.Enabled && strings.TrimSpace(c.MapUpdates.Brokers) == "" {
		errs = append(errs, errors.New("KAFKA_BROKERS required when MAPUPDATES_ENABLED"))
	}
	return errors.Join(errs...)
}

// GraphOptions resolves the search policy strings; call after Validate.
func (c Config) GraphOptions() graph.Options {
	tr, _ := graph.ParseTraversal(c.Search.Traversal)
	dc, _ := graph.ParseDiagonalCost(c.Search.DiagonalCost)
	return graph.Options{Traversal: tr, Diagonal: dc}
}

// BrokerList splits the comma-separated KAFKA_BROKERS value.
func (c MapUpdatesCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
