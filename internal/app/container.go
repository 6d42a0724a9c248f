package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tuesfest/yt-leaderboard/internal/adapter"
	"github.com/tuesfest/yt-leaderboard/internal/config"
	"github.com/tuesfest/yt-leaderboard/internal/constants"
	"github.com/tuesfest/yt-leaderboard/internal/server"
	"github.com/tuesfest/yt-leaderboard/internal/service/cache"
	"github.com/tuesfest/yt-leaderboard/internal/service/leaderboard"
	"github.com/tuesfest/yt-leaderboard/internal/service/mirror"
	"github.com/tuesfest/yt-leaderboard/internal/service/youtube"
	"go.uber.org/zap"
)

// Container bundles the assembled services for the HTTP process and the
// developer tools.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Source     leaderboard.Source
	Aggregator *leaderboard.Aggregator
	Service    *leaderboard.Service
	Refresher  *leaderboard.Refresher
	Server     *server.Server
	Registry   *prometheus.Registry

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// BuildSource creates the video source selected by cfg.Source.Mode.
func BuildSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (leaderboard.Source, error) {
	switch cfg.Source.Mode {
	case config.SourceModeMirror:
		return mirror.NewClient(mirror.ClientConfig{
			BaseURL:   cfg.Mirror.BaseURL,
			Timeout:   cfg.Mirror.Timeout,
			RateLimit: cfg.Mirror.RateLimit,
		}, logger), nil
	case config.SourceModeYouTube:
		ys, err := youtube.NewYouTubeService(ctx, cfg.YouTube.APIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create youtube service: %w", err)
		}
		return ys, nil
	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Source.Mode)
	}
}

// Build assembles every service. Redis is optional: when enabled but
// unreachable, Build logs a warning and continues uncached.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	container := &Container{
		Config: cfg,
		Logger: logger,
	}
	defer func() {
		if err != nil {
			container.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Registry = registry
	metrics := leaderboard.NewMetrics(registry)

	source, err := BuildSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	container.Source = source

	// Kept as interfaces so a disabled cache stays a true nil.
	var (
		snapshotCache leaderboard.SnapshotCache
		healthCheck   server.ConnectionChecker
	)
	if cfg.Redis.Enabled {
		cacheSvc, cacheErr := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if cacheErr != nil {
			logger.Warn("Redis unavailable, serving without response cache", zap.Error(cacheErr))
		} else {
			snapshotCache = cacheSvc
			healthCheck = cacheSvc
			container.closers = append(container.closers, func() {
				_ = cacheSvc.Close()
			})
		}
	}

	container.Aggregator = leaderboard.NewAggregator(source, leaderboard.AggregatorConfig{
		PlaylistID:     cfg.Leaderboard.PlaylistID,
		MaxConcurrency: cfg.Leaderboard.MaxConcurrency,
	}, metrics, logger)

	container.Service = leaderboard.NewService(container.Aggregator, snapshotCache, leaderboard.ServiceConfig{
		CacheTTL:         constants.CacheTTL.Videos,
		AggregateTimeout: constants.RefreshConfig.AggregateTimeout,
	}, metrics, logger)

	container.Refresher = leaderboard.NewRefresher(container.Service, cfg.Leaderboard.RefreshInterval, logger)
	container.closers = append(container.closers, container.Refresher.Stop)

	container.Server = server.New(server.Deps{
		Videos:   container.Service,
		State:    container.Refresher,
		Renderer: adapter.NewPageRenderer(cfg.Leaderboard.RefreshInterval),
		Cache:    healthCheck,
		Gatherer: registry,
	}, logger)

	logger.Info("Leaderboard services assembled",
		zap.String("source", source.Name()),
		zap.String("playlist", cfg.Leaderboard.PlaylistID),
		zap.Bool("cache", snapshotCache != nil),
		zap.Int("max_concurrency", cfg.Leaderboard.MaxConcurrency))

	return container, nil
}
