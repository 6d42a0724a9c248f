package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	apperrors "github.com/tuesfest/yt-leaderboard/pkg/errors"
	"go.uber.org/zap"
)

// Source is a remote video-metadata provider: the Data API or a public mirror.
type Source interface {
	Name() string
	PlaylistPages(ctx context.Context, playlistID string) domain.PageIterator
	VideoStats(ctx context.Context, videoID string) (*domain.VideoStats, error)
}

type AggregatorConfig struct {
	PlaylistID string
	// MaxConcurrency caps parallel stat fetches; 0 leaves fan-out unbounded.
	MaxConcurrency int
}

type Aggregator struct {
	source         Source
	playlistID     string
	maxConcurrency int
	metrics        *Metrics
	logger         *zap.Logger
}

func NewAggregator(source Source, cfg AggregatorConfig, metrics *Metrics, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		source:         source,
		playlistID:     cfg.PlaylistID,
		maxConcurrency: cfg.MaxConcurrency,
		metrics:        metrics,
		logger:         logger,
	}
}

func (a *Aggregator) PlaylistID() string {
	return a.playlistID
}

// EnumeratePlaylist collects every entry of the playlist, one page after the
// other. Any page error aborts the walk.
func EnumeratePlaylist(ctx context.Context, source Source, playlistID string) ([]domain.PlaylistEntry, error) {
	pages := source.PlaylistPages(ctx, playlistID)

	var entries []domain.PlaylistEntry
	for page := 1; pages.HasMore(); page++ {
		batch, err := pages.Next(ctx)
		if errors.Is(err, domain.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch playlist %s page %d: %w", playlistID, page, err)
		}
		entries = append(entries, batch...)
	}

	return entries, nil
}

// Dedupe returns unique ids in first-seen order along with the first title
// seen for each. Entries without an id or with a reported zero length are
// skipped.
func Dedupe(entries []domain.PlaylistEntry) ([]string, map[string]string) {
	ids := make([]string, 0, len(entries))
	titles := make(map[string]string, len(entries))

	for _, entry := range entries {
		if entry.ID == "" || entry.HasZeroLength() {
			continue
		}
		if _, seen := titles[entry.ID]; seen {
			continue
		}
		titles[entry.ID] = entry.Title
		ids = append(ids, entry.ID)
	}

	return ids, titles
}

// Aggregate builds a fresh leaderboard collection from the source. Stats are
// fetched concurrently; the first failure cancels the rest and is returned.
func (a *Aggregator) Aggregate(ctx context.Context) ([]domain.VideoRecord, error) {
	start := time.Now()
	sourceName := a.source.Name()

	records, err := a.aggregate(ctx)
	a.metrics.observeRun(sourceName, time.Since(start), len(records), err)
	if err != nil {
		a.logger.Error("Leaderboard aggregation failed",
			zap.String("source", sourceName),
			zap.String("playlist", a.playlistID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	a.logger.Info("Leaderboard aggregated",
		zap.String("source", sourceName),
		zap.String("playlist", a.playlistID),
		zap.Int("videos", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	return records, nil
}

func (a *Aggregator) aggregate(ctx context.Context) ([]domain.VideoRecord, error) {
	entries, err := EnumeratePlaylist(ctx, a.source, a.playlistID)
	if err != nil {
		return nil, err
	}

	ids, titles := Dedupe(entries)
	a.logger.Debug("Playlist enumerated",
		zap.Int("entries", len(entries)),
		zap.Int("unique", len(ids)))

	records := make([]domain.VideoRecord, len(ids))

	p := pool.New()
	if a.maxConcurrency > 0 {
		p = p.WithMaxGoroutines(a.maxConcurrency)
	}
	cp := p.WithContext(ctx).WithCancelOnError().WithFirstError()

	for idx, id := range ids {
		cp.Go(func(ctx context.Context) error {
			stats, err := a.source.VideoStats(ctx, id)
			if err != nil {
				return apperrors.NewServiceError(fmt.Sprintf("fetch stats for %s", id), a.source.Name(), "video_stats", err)
			}
			records[idx] = buildRecord(id, titles[id], stats)
			return nil
		})
	}

	if err := cp.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

func buildRecord(id, rawTitle string, stats *domain.VideoStats) domain.VideoRecord {
	record := domain.VideoRecord{
		ID:    id,
		Title: NormalizeTitle(rawTitle),
	}
	if stats != nil {
		record.Views = CoalesceCount(stats.Views)
		record.Likes = CoalesceCount(stats.Likes)
		record.Dislikes = CoalesceCount(stats.Dislikes)
	}
	return record
}
