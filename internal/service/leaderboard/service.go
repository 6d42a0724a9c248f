package leaderboard

import (
	"context"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/constants"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// VideoAggregator produces a fresh, unordered leaderboard collection.
type VideoAggregator interface {
	PlaylistID() string
	Aggregate(ctx context.Context) ([]domain.VideoRecord, error)
}

// SnapshotCache stores the last aggregation per playlist.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, playlistID string) (*domain.Snapshot, error)
	SetSnapshot(ctx context.Context, snapshot *domain.Snapshot, ttl time.Duration) error
}

type ServiceConfig struct {
	CacheTTL         time.Duration
	AggregateTimeout time.Duration
}

// Service is the query boundary's data source. Concurrent callers share a
// single in-flight aggregation, and a cache hit skips the remote sources.
type Service struct {
	aggregator VideoAggregator
	cache      SnapshotCache
	cfg        ServiceConfig
	group      singleflight.Group
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewService builds the service. cache may be nil.
func NewService(aggregator VideoAggregator, cache SnapshotCache, cfg ServiceConfig, metrics *Metrics, logger *zap.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = constants.CacheTTL.Videos
	}
	if cfg.AggregateTimeout <= 0 {
		cfg.AggregateTimeout = constants.RefreshConfig.AggregateTimeout
	}

	return &Service{
		aggregator: aggregator,
		cache:      cache,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Videos returns every unique playlist video with normalized title and
// coalesced stats, in playlist order.
func (s *Service) Videos(ctx context.Context) ([]domain.VideoRecord, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Videos, nil
}

// Snapshot returns the cached aggregation when present, otherwise runs one.
func (s *Service) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	playlistID := s.aggregator.PlaylistID()

	if cached := s.cached(ctx, playlistID); cached != nil {
		return cached, nil
	}

	ch := s.group.DoChan(playlistID, func() (any, error) {
		// The shared run outlives any single caller's cancellation.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AggregateTimeout)
		defer cancel()

		videos, err := s.aggregator.Aggregate(runCtx)
		if err != nil {
			return nil, err
		}

		snapshot := &domain.Snapshot{
			PlaylistID: playlistID,
			Videos:     videos,
			FetchedAt:  s.now(),
		}

		if s.cache != nil {
			if err := s.cache.SetSnapshot(runCtx, snapshot, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("Failed to cache leaderboard snapshot",
					zap.String("playlist", playlistID),
					zap.Error(err))
			}
		}

		return snapshot, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	}
}

func (s *Service) cached(ctx context.Context, playlistID string) *domain.Snapshot {
	if s.cache == nil {
		return nil
	}

	snapshot, err := s.cache.GetSnapshot(ctx, playlistID)
	switch {
	case err != nil:
		s.metrics.observeCache("error")
		s.logger.Warn("Snapshot cache lookup failed", zap.String("playlist", playlistID), zap.Error(err))
		return nil
	case snapshot == nil:
		s.metrics.observeCache("miss")
		return nil
	default:
		s.metrics.observeCache("hit")
		return snapshot
	}
}
