package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/astar"
	"github.com/mohammed-shakir/osm-grid-router/internal/cache/redisstore"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/config"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/observability"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/server"
	"github.com/mohammed-shakir/osm-grid-router/internal/logger"
	h3mapper "github.com/mohammed-shakir/osm-grid-router/internal/mapper/h3"
	"github.com/mohammed-shakir/osm-grid-router/internal/mapupdate/kafkaconsumer"
	"github.com/mohammed-shakir/osm-grid-router/internal/metrics"
	"github.com/mohammed-shakir/osm-grid-router/internal/osmxml"
	"github.com/mohammed-shakir/osm-grid-router/internal/pathcache"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
	"github.com/mohammed-shakir/osm-grid-router/internal/routing"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "gridrouter",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 2
	}

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting gridrouter",
		"addr", cfg.Addr,
		"version", Version,
		"map", cfg.MapFile,
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Rows, cfg.Grid.Cols))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	frame, err := projection.NewFrame(cfg.Zoom, cfg.Origin, cfg.Grid)
	if err != nil {
		appLog.Error("invalid frame", "err", err)
		return 1
	}

	mapper, err := h3mapper.New(cfg.H3Res)
	if err != nil {
		appLog.Error("h3 mapper", "err", err)
		return 1
	}

	cache, closeCache := pathCache(ctx, cfg, appLog)
	defer closeCache()

	engine, err := routing.New(frame, routing.Options{
		Speed: cfg.RasterSpeed,
		Graph: cfg.GraphOptions(),
		Search: astar.Options{
			MaxIterations: cfg.Search.MaxIterations,
			Closest:       cfg.Search.Closest,
		},
		Cache:  cache,
		H3:     mapper,
		Logger: appLog,
	})
	if err != nil {
		appLog.Error("routing engine", "err", err)
		return 1
	}

	if err := loadMap(ctx, engine, cfg.MapFile, appLog); err != nil {
		appLog.Error("initial map load failed", "file", cfg.MapFile, "err", err)
		return 1
	}

	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.MetricsAddr,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		p.Register(observability.Collectors()...)
		if srv := p.Server(); srv != nil {
			go serveMetrics(ctx, srv, appLog)
		}
	}

	if cfg.MapUpdates.Enabled {
		c := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.MapUpdates), appLog, &zl, engine)
		go func() {
			if err := c.Start(ctx); err != nil {
				appLog.Error("map update consumer stopped", "err", err)
			}
		}()
	}

	if err := server.Run(ctx, cfg, appLog, engine, engine); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// pathCache always keeps an in-process tier; redis is added when configured
// and reachable.
func pathCache(ctx context.Context, cfg config.Config, log *slog.Logger) (pathcache.Cache, func()) {
	local := pathcache.NewMemory(cfg.PathCacheSize)
	if cfg.RedisAddr == "" {
		return pathcache.NewTiered(local, nil), func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rc, err := redisstore.New(pingCtx, cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, using memory path cache only", "addr", cfg.RedisAddr, "err", err)
		return pathcache.NewTiered(local, nil), func() {}
	}
	remote := pathcache.NewRedis(rc, cfg.PathCacheTTL, cfg.CacheOpTimeout)
	return pathcache.NewTiered(local, remote), func() { _ = rc.Close() }
}

func loadMap(ctx context.Context, e *routing.Engine, path string, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ex, err := osmxml.Decode(ctx, f)
	if err != nil {
		return err
	}
	if ex.Unresolved > 0 {
		log.Warn("dropped unresolved node refs", "count", ex.Unresolved)
	}
	snap, err := e.Build(ctx, ex.Ways, path)
	if err != nil {
		return err
	}
	log.Info("map loaded",
		"ways", len(ex.Ways),
		"nodes", ex.Nodes,
		"occupied", snap.Grid.Occupied(),
		"grid_version", fmt.Sprintf("%x", snap.Version))
	return nil
}

func serveMetrics(ctx context.Context, srv *http.Server, log *slog.Logger) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown", "err", err)
		}
	}()
	log.Info("metrics listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server exited", "err", err)
	}
}
