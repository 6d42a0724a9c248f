package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"github.com/tuesfest/yt-leaderboard/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const sourceName = "mirror"

// Client talks to an Invidious-compatible public API mirror.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; 0 means unlimited.
	RateLimit float64
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(math.Max(1, math.Ceil(cfg.RateLimit)))
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

func (c *Client) Name() string {
	return sourceName
}

type playlistResponse struct {
	Title      string          `json:"title"`
	VideoCount int             `json:"videoCount"`
	Videos     []playlistVideo `json:"videos"`
}

type playlistVideo struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	LengthSeconds *int   `json:"lengthSeconds"`
}

type videoResponse struct {
	ViewCount    *float64 `json:"viewCount"`
	LikeCount    *float64 `json:"likeCount"`
	DislikeCount *float64 `json:"dislikeCount"`
}

// PlaylistPages pages through /playlists/{id}?page=N. The mirror has no
// continuation token, so the page number is the cursor.
func (c *Client) PlaylistPages(_ context.Context, playlistID string) domain.PageIterator {
	return &playlistPager{
		client:     c,
		playlistID: playlistID,
		page:       1,
		seen:       make(map[string]struct{}),
	}
}

type playlistPager struct {
	client     *Client
	playlistID string
	page       int
	seen       map[string]struct{}
	done       bool
}

func (p *playlistPager) HasMore() bool {
	return !p.done
}

func (p *playlistPager) Next(ctx context.Context) ([]domain.PlaylistEntry, error) {
	if p.done {
		return nil, domain.ErrNoMorePages
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(p.page))

	var resp playlistResponse
	path := "/playlists/" + url.PathEscape(p.playlistID)
	if err := p.client.doRequest(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	entries := make([]domain.PlaylistEntry, 0, len(resp.Videos))
	fresh := 0
	for _, video := range resp.Videos {
		entries = append(entries, domain.PlaylistEntry{
			ID:            video.VideoID,
			Title:         video.Title,
			LengthSeconds: video.LengthSeconds,
		})
		if video.VideoID == "" {
			continue
		}
		if _, ok := p.seen[video.VideoID]; !ok {
			p.seen[video.VideoID] = struct{}{}
			fresh++
		}
	}

	p.done = p.exhausted(resp, fresh)

	p.client.logger.Debug("Mirror playlist page fetched",
		zap.String("playlist", p.playlistID),
		zap.Int("page", p.page),
		zap.Int("items", len(entries)),
		zap.Int("new", fresh),
		zap.Bool("hasMore", !p.done))

	p.page++
	return entries, nil
}

// exhausted decides whether the page just read was the last one. With a
// videoCount, pages made only of duplicates do not end the walk; the page
// number is bounded by videoCount instead, since every non-empty page carries
// at least one item. Without it, a page adding no new ids ends the walk.
func (p *playlistPager) exhausted(resp playlistResponse, fresh int) bool {
	switch {
	case len(resp.Videos) == 0:
		return true
	case resp.VideoCount > 0:
		return len(p.seen) >= resp.VideoCount || p.page >= resp.VideoCount
	default:
		return fresh == 0
	}
}

// VideoStats reads viewCount, likeCount and dislikeCount from /videos/{id}.
// Absent fields come back as NaN so the caller can coalesce them.
func (c *Client) VideoStats(ctx context.Context, videoID string) (*domain.VideoStats, error) {
	var resp videoResponse
	if err := c.doRequest(ctx, "/videos/"+url.PathEscape(videoID), nil, &resp); err != nil {
		return nil, err
	}

	return &domain.VideoStats{
		Views:    valueOrNaN(resp.ViewCount),
		Likes:    valueOrNaN(resp.LikeCount),
		Dislikes: valueOrNaN(resp.DislikeCount),
	}, nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, respBody any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewAPIError("rate limiter wait aborted", 499, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.NewAPIError("failed to create request", 500, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewAPIError("request failed", 502, map[string]any{
			"url": reqURL,
		}).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Mirror API error",
			zap.String("url", reqURL),
			zap.Int("status", resp.StatusCode))
		return errors.NewAPIError(
			fmt.Sprintf("mirror API error: %s", resp.Status),
			resp.StatusCode,
			map[string]any{
				"url":  reqURL,
				"body": string(bodyBytes),
			},
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return errors.NewDecodeError("failed to decode mirror response", sourceName, err)
	}

	return nil
}
