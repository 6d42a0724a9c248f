package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tuesfest/yt-leaderboard/internal/config"
	"go.uber.org/zap"
)

func mirrorConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Source: config.SourceConfig{Mode: config.SourceModeMirror},
		Mirror: config.MirrorConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Leaderboard: config.LeaderboardConfig{
			PlaylistID:      "PLtest",
			RefreshInterval: time.Minute,
		},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func TestBuildRejectsNilInputs(t *testing.T) {
	if _, err := Build(context.Background(), nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := Build(context.Background(), mirrorConfig("http://x"), nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestBuildUnknownSourceMode(t *testing.T) {
	cfg := mirrorConfig("http://x")
	cfg.Source.Mode = "carrier-pigeon"
	if _, err := Build(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown source mode")
	}
}

func TestBuildServesMirrorLeaderboard(t *testing.T) {
	mirrorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/playlists/PLtest":
			if r.URL.Query().Get("page") == "1" {
				_, _ = w.Write([]byte(`{"videos":[{"videoId":"a","title":"A | TUES Fest 2023","lengthSeconds":60}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"videos":[]}`))
		case "/videos/a":
			_, _ = w.Write([]byte(`{"viewCount":10,"likeCount":2,"dislikeCount":0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mirrorSrv.Close()

	container, err := Build(context.Background(), mirrorConfig(mirrorSrv.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer container.Close()

	if container.Source.Name() != "mirror" {
		t.Fatalf("expected mirror source, got %s", container.Source.Name())
	}

	rec := httptest.NewRecorder()
	container.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trpc/videos.get", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if want := `{"result":{"data":[{"id":"a","title":"A","views":10,"likes":2,"dislikes":0}]}}`; rec.Body.String() != want+"\n" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
