package youtube

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sosodev/duration"
	"github.com/tuesfest/yt-leaderboard/internal/constants"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	apperrors "github.com/tuesfest/yt-leaderboard/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const sourceName = "youtube"

type YouTubeService struct {
	service    *youtube.Service
	logger     *zap.Logger
	quotaUsed  int
	quotaMu    sync.Mutex
	quotaReset time.Time
}

const (
	dailyQuotaLimit        = 10000
	playlistItemsQuotaCost = 1 // playlistItems.list cost
	videosQuotaCost        = 1 // videos.list cost

	quotaSafetyMargin = 500
)

// NewYouTubeService creates a Data API v3 backed source. Extra client options
// are appended after the API key (tests point the endpoint at a fake server).
func NewYouTubeService(ctx context.Context, apiKey string, logger *zap.Logger, opts ...option.ClientOption) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	ys := &YouTubeService{
		service:    service,
		logger:     logger,
		quotaReset: getNextQuotaReset(),
	}

	logger.Info("YouTube Data API source initialized",
		zap.Time("quotaReset", ys.quotaReset))

	return ys, nil
}

func (ys *YouTubeService) Name() string {
	return sourceName
}

func getNextQuotaReset() time.Time {
	pt, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		pt = time.FixedZone("PT", -8*60*60)
	}
	now := time.Now().In(pt)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, pt)
}

func (ys *YouTubeService) checkQuota(cost int) error {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	if time.Now().After(ys.quotaReset) {
		ys.quotaUsed = 0
		ys.quotaReset = getNextQuotaReset()
		ys.logger.Info("YouTube API quota auto-reset",
			zap.Time("nextReset", ys.quotaReset))
	}

	if ys.quotaUsed+cost > (dailyQuotaLimit - quotaSafetyMargin) {
		return &QuotaExceededError{
			Used:      ys.quotaUsed,
			Limit:     dailyQuotaLimit,
			Requested: cost,
			ResetTime: ys.quotaReset,
		}
	}

	return nil
}

func (ys *YouTubeService) consumeQuota(cost int) {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	ys.quotaUsed += cost
	remaining := dailyQuotaLimit - ys.quotaUsed

	if remaining < quotaSafetyMargin {
		ys.logger.Warn("YouTube API quota running low",
			zap.Int("remaining", remaining),
			zap.Time("resetTime", ys.quotaReset))
	}
}

func (ys *YouTubeService) GetQuotaStatus() (used int, remaining int, resetTime time.Time) {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	if time.Now().After(ys.quotaReset) {
		return 0, dailyQuotaLimit, getNextQuotaReset()
	}

	return ys.quotaUsed, dailyQuotaLimit - ys.quotaUsed, ys.quotaReset
}

// PlaylistPages returns an iterator over the playlist's playlistItems pages.
func (ys *YouTubeService) PlaylistPages(_ context.Context, playlistID string) domain.PageIterator {
	return &playlistPager{ys: ys, playlistID: playlistID}
}

type playlistPager struct {
	ys         *YouTubeService
	playlistID string
	token      string
	fetched    int
	done       bool
}

func (p *playlistPager) HasMore() bool {
	return !p.done
}

func (p *playlistPager) Next(ctx context.Context) ([]domain.PlaylistEntry, error) {
	if p.done {
		return nil, domain.ErrNoMorePages
	}

	if err := p.ys.checkQuota(playlistItemsQuotaCost + videosQuotaCost); err != nil {
		return nil, err
	}

	call := p.ys.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(p.playlistID).
		MaxResults(constants.APIConfig.PlaylistPageSize)
	if p.token != "" {
		call = call.PageToken(p.token)
	}

	response, err := call.Context(ctx).Do()
	p.ys.consumeQuota(playlistItemsQuotaCost)
	if err != nil {
		return nil, p.ys.wrapAPIError("playlistItems.list", playlistItemsQuotaCost, err)
	}

	entries := make([]domain.PlaylistEntry, 0, len(response.Items))
	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		id := playlistItemVideoID(item)
		if id == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		entries = append(entries, domain.PlaylistEntry{ID: id, Title: title})
		ids = append(ids, id)
	}

	if len(ids) > 0 {
		lengths, err := p.ys.videoLengths(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			seconds := lengths[entries[i].ID]
			entries[i].LengthSeconds = &seconds
		}
	}

	p.fetched++
	p.token = response.NextPageToken
	p.done = p.token == ""

	p.ys.logger.Debug("Playlist page fetched",
		zap.String("playlist", p.playlistID),
		zap.Int("page", p.fetched),
		zap.Int("items", len(entries)),
		zap.Bool("hasMore", !p.done))

	return entries, nil
}

func playlistItemVideoID(item *youtube.PlaylistItem) string {
	if item == nil {
		return ""
	}
	if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
		return item.ContentDetails.VideoId
	}
	if item.Snippet != nil && item.Snippet.ResourceId != nil {
		return item.Snippet.ResourceId.VideoId
	}
	return ""
}

// videoLengths resolves durations in seconds for up to one page of ids.
// Ids the API does not return (private or deleted videos) map to 0.
func (ys *YouTubeService) videoLengths(ctx context.Context, ids []string) (map[string]int, error) {
	response, err := ys.service.Videos.List([]string{"contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	ys.consumeQuota(videosQuotaCost)
	if err != nil {
		return nil, ys.wrapAPIError("videos.list", videosQuotaCost, err)
	}

	lengths := make(map[string]int, len(ids))
	for _, video := range response.Items {
		if video.ContentDetails == nil {
			continue
		}
		seconds, err := parseDurationSeconds(video.ContentDetails.Duration)
		if err != nil {
			return nil, apperrors.NewDecodeError("invalid video duration", sourceName, err)
		}
		lengths[video.Id] = seconds
	}

	return lengths, nil
}

func parseDurationSeconds(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := duration.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return int(d.ToTimeDuration() / time.Second), nil
}

// VideoStats fetches view and like counts. The Data API no longer publishes
// dislike counts, so Dislikes is always zero in this mode.
func (ys *YouTubeService) VideoStats(ctx context.Context, videoID string) (*domain.VideoStats, error) {
	if err := ys.checkQuota(videosQuotaCost); err != nil {
		return nil, err
	}

	response, err := ys.service.Videos.List([]string{"statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	ys.consumeQuota(videosQuotaCost)
	if err != nil {
		return nil, ys.wrapAPIError("videos.list", videosQuotaCost, err)
	}

	if len(response.Items) == 0 {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("video %s not found", videoID), sourceName, nil)
	}

	stats := response.Items[0].Statistics
	if stats == nil {
		return &domain.VideoStats{Views: math.NaN(), Likes: math.NaN()}, nil
	}

	return &domain.VideoStats{
		Views:    float64(stats.ViewCount),
		Likes:    float64(stats.LikeCount),
		Dislikes: 0,
	}, nil
}

// quotaReasons are the googleapi error reasons that mean the key ran out of quota.
var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
}

func isQuotaError(apiErr *googleapi.Error) bool {
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}

func (ys *YouTubeService) wrapAPIError(operation string, cost int, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if isQuotaError(apiErr) {
			used, _, reset := ys.GetQuotaStatus()
			return &QuotaExceededError{
				Used:      used,
				Limit:     dailyQuotaLimit,
				Requested: cost,
				ResetTime: reset,
				Cause:     err,
			}
		}
		return apperrors.NewAPIError(fmt.Sprintf("YouTube API %s failed", operation), apiErr.Code, map[string]any{
			"operation": operation,
		}).WithCause(err)
	}
	return apperrors.NewAPIError(fmt.Sprintf("YouTube API %s failed", operation), http.StatusBadGateway, map[string]any{
		"operation": operation,
	}).WithCause(err)
}

type QuotaExceededError struct {
	Used      int
	Limit     int
	Requested int
	ResetTime time.Time
	Cause     error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("YouTube API quota exceeded: used %d/%d (requested %d more), resets at %s",
		e.Used, e.Limit, e.Requested, e.ResetTime.Format(time.RFC3339))
}

func (e *QuotaExceededError) Unwrap() error {
	return e.Cause
}
