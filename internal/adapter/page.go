package adapter

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/constants"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"github.com/tuesfest/yt-leaderboard/internal/util"
)

//go:embed templates/*.tmpl
var pageTemplateFS embed.FS

var (
	pageTemplates *template.Template
	pageOnce      sync.Once
	pageErr       error
)

func executePageTemplate(w io.Writer, name string, data any) error {
	pageOnce.Do(func() {
		pageTemplates, pageErr = template.New("page").ParseFS(pageTemplateFS, "templates/*.tmpl")
	})

	if pageErr != nil {
		return pageErr
	}

	// Render into a buffer so a template failure never leaves a half page.
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

type PageRenderer struct {
	refreshInterval time.Duration
	now             func() time.Time
}

func NewPageRenderer(refreshInterval time.Duration) *PageRenderer {
	return &PageRenderer{
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
}

type pageData struct {
	Sort           string
	Refreshing     bool
	LastUpdated    string
	UpdatedAt      string
	RefreshSeconds int
	Entries        []pageEntry
	SortOptions    []sortOption
}

type sortOption struct {
	Key    string
	Label  string
	Active bool
}

type pageEntry struct {
	Rank              int
	ID                string
	Title             string
	ShortTitle        string
	WatchURL          string
	Thumbnail         string
	FallbackThumbnail string
	Views             uint64
	Likes             uint64
	Dislikes          uint64
	Podium            string
}

var podiumClasses = []string{"podium-gold", "podium-silver", "podium-bronze"}

// Render writes the leaderboard page. snapshot may be nil before the first
// successful refresh; the page then shows an empty list.
func (r *PageRenderer) Render(w io.Writer, snapshot *domain.Snapshot, refreshing bool, key domain.SortKey) error {
	if !key.IsValid() {
		key = domain.SortByViews
	}

	data := pageData{
		Sort:           key.String(),
		Refreshing:     refreshing,
		RefreshSeconds: int(r.refreshInterval / time.Second),
		SortOptions: []sortOption{
			{Key: domain.SortByViews.String(), Label: "Views", Active: key == domain.SortByViews},
			{Key: domain.SortByLikes.String(), Label: "Likes", Active: key == domain.SortByLikes},
		},
	}

	var videos []domain.VideoRecord
	if snapshot != nil {
		videos = snapshot.Videos
		data.LastUpdated = util.MinutesAgo(snapshot.FetchedAt, r.now())
		if !snapshot.FetchedAt.IsZero() {
			data.UpdatedAt = snapshot.FetchedAt.UTC().Format(time.RFC3339)
		}
	} else {
		data.LastUpdated = util.MinutesAgo(time.Time{}, r.now())
	}

	for i, video := range Rank(videos, key) {
		entry := pageEntry{
			Rank:              video.Rank,
			ID:                video.ID,
			Title:             video.Title,
			ShortTitle:        util.TruncateString(video.Title, constants.DisplayConfig.MaxTitleLength),
			WatchURL:          video.WatchURL(),
			Thumbnail:         video.ThumbnailURL(constants.APIConfig.DefaultThumbnail),
			FallbackThumbnail: video.ThumbnailURL(constants.APIConfig.FallbackThumbnail),
			Views:             video.Views,
			Likes:             video.Likes,
			Dislikes:          video.Dislikes,
		}
		if i < constants.DisplayConfig.PodiumSize && i < len(podiumClasses) {
			entry.Podium = podiumClasses[i]
		}
		data.Entries = append(data.Entries, entry)
	}

	return executePageTemplate(w, "leaderboard.tmpl", data)
}
