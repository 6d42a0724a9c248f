package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/constants"
)

// VideoRecord is one leaderboard entry as returned by videos.get.
type VideoRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Views    uint64 `json:"views"`
	Likes    uint64 `json:"likes"`
	Dislikes uint64 `json:"dislikes"`
}

func (v VideoRecord) WatchURL() string {
	return fmt.Sprintf(constants.APIConfig.YouTubeWatchURL, v.ID)
}

// ThumbnailURL returns the i.ytimg.com thumbnail for the given resolution name
// ("maxresdefault", "hqdefault", "default", ...).
func (v VideoRecord) ThumbnailURL(resolution string) string {
	if resolution == "" {
		resolution = constants.APIConfig.DefaultThumbnail
	}
	return fmt.Sprintf(constants.APIConfig.YouTubeThumbnail, v.ID, resolution)
}

// PlaylistEntry is a raw playlist item as reported by a video source.
type PlaylistEntry struct {
	ID    string
	Title string
	// LengthSeconds is nil when the source does not report a length.
	LengthSeconds *int
}

// HasZeroLength reports whether the source explicitly reported a zero length.
func (e PlaylistEntry) HasZeroLength() bool {
	return e.LengthSeconds != nil && *e.LengthSeconds <= 0
}

// VideoStats carries raw counts from a detail endpoint. Values may be NaN or
// infinite when the source omits them; callers coalesce before use.
type VideoStats struct {
	Views    float64
	Likes    float64
	Dislikes float64
}

// ErrNoMorePages is returned by PageIterator.Next once the playlist is exhausted.
var ErrNoMorePages = errors.New("no more playlist pages")

// PageIterator walks a playlist one page at a time. It is not restartable.
type PageIterator interface {
	HasMore() bool
	Next(ctx context.Context) ([]PlaylistEntry, error)
}

// Snapshot is an aggregation result stamped with the time it was produced.
type Snapshot struct {
	PlaylistID string        `json:"playlist_id"`
	Videos     []VideoRecord `json:"videos"`
	FetchedAt  time.Time     `json:"fetched_at"`
}

func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Videos) == 0
}

// SortKey selects the leaderboard ordering.
type SortKey string

const (
	SortByViews SortKey = "views"
	SortByLikes SortKey = "likes"
)

func (k SortKey) String() string {
	return string(k)
}

func (k SortKey) IsValid() bool {
	switch k {
	case SortByViews, SortByLikes:
		return true
	default:
		return false
	}
}

// ParseSortKey maps user input onto a SortKey, defaulting to views.
func ParseSortKey(raw string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	if !key.IsValid() {
		return SortByViews
	}
	return key
}

// RankedVideo is a VideoRecord with its position for one render.
type RankedVideo struct {
	VideoRecord
	Rank int `json:"rank"`
}
