package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tuesfest/yt-leaderboard/internal/adapter"
	"github.com/tuesfest/yt-leaderboard/internal/constants"
	"github.com/tuesfest/yt-leaderboard/internal/domain"
	"github.com/tuesfest/yt-leaderboard/internal/service/leaderboard"
	"go.uber.org/zap"
)

// VideoLister serves videos.get.
type VideoLister interface {
	Videos(ctx context.Context) ([]domain.VideoRecord, error)
}

// StateProvider feeds the HTML page.
type StateProvider interface {
	State() leaderboard.RefreshState
}

// ConnectionChecker reports backing cache health for /healthz.
type ConnectionChecker interface {
	IsConnected(ctx context.Context) bool
}

type Deps struct {
	Videos   VideoLister
	State    StateProvider
	Renderer *adapter.PageRenderer
	// Cache is nil when response caching is disabled.
	Cache    ConnectionChecker
	Gatherer prometheus.Gatherer
}

type Server struct {
	deps       Deps
	procedures map[string]procedure
	logger     *zap.Logger
}

func New(deps Deps, logger *zap.Logger) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		deps:   deps,
		logger: logger,
	}
	s.procedures = map[string]procedure{
		"videos.get": s.videosGet,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/api/trpc/{procedures}", s.handleTRPC)

	return r
}

// HTTPServer wraps Handler in an *http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.APIConfig.ReadHeaderTimeout,
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	key := domain.ParseSortKey(r.URL.Query().Get("sort"))
	state := s.deps.State.State()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.Render(w, state.Snapshot, state.Refreshing, key); err != nil {
		s.logger.Error("Failed to render leaderboard page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type healthResponse struct {
	Status           string `json:"status"`
	Cache            string `json:"cache"`
	Videos           int    `json:"videos"`
	Refreshing       bool   `json:"refreshing"`
	LastRefreshError string `json:"last_refresh_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Cache: "disabled"}

	if s.deps.Cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if s.deps.Cache.IsConnected(ctx) {
			resp.Cache = "connected"
		} else {
			resp.Cache = "disconnected"
		}
	}
	if s.deps.State != nil {
		state := s.deps.State.State()
		if !state.Snapshot.IsEmpty() {
			resp.Videos = len(state.Snapshot.Videos)
		}
		resp.Refreshing = state.Refreshing
		if state.LastError != nil {
			// Liveness stays ok: the last good snapshot is still served.
			resp.LastRefreshError = state.LastError.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
