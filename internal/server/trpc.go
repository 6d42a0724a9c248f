package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tuesfest/yt-leaderboard/internal/constants"
	"github.com/tuesfest/yt-leaderboard/internal/util"
	"go.uber.org/zap"
)

type procedure func(ctx context.Context) (any, error)

// JSON-RPC error numbers used by tRPC.
const (
	codeNotFound           = -32004
	codeMethodNotSupported = -32005
	codeInternal           = -32603
)

type trpcResponse struct {
	Result *trpcResult `json:"result,omitempty"`
	Error  *trpcError  `json:"error,omitempty"`
}

type trpcResult struct {
	Data any `json:"data"`
}

type trpcError struct {
	Message string        `json:"message"`
	Code    int           `json:"code"`
	Data    trpcErrorData `json:"data"`
}

type trpcErrorData struct {
	Code       string `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path,omitempty"`
}

func newTRPCError(path string, status, code int, name, message string) trpcResponse {
	return trpcResponse{Error: &trpcError{
		Message: message,
		Code:    code,
		Data: trpcErrorData{
			Code:       name,
			HTTPStatus: status,
			Path:       path,
		},
	}}
}

// handleTRPC serves /api/trpc/{procedures}. With ?batch=1 the path segment is
// a comma separated list and the body is an array of results.
func (s *Server) handleTRPC(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "procedures")
	batch := r.URL.Query().Get("batch") == "1"

	paths := []string{raw}
	if batch {
		if split := util.SplitCommaList(raw); len(split) > 0 {
			paths = split
		}
	}

	responses := make([]trpcResponse, len(paths))
	statuses := make([]int, len(paths))
	for i, path := range paths {
		responses[i], statuses[i] = s.call(r, path)
	}

	status := statuses[0]
	for _, st := range statuses[1:] {
		if st != status {
			status = http.StatusMultiStatus
			break
		}
	}

	if isCacheable(r.Method, paths, responses) {
		w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d, stale-while-revalidate=%d",
			int(constants.EdgeCache.SharedMaxAge.Seconds()),
			int(constants.EdgeCache.StaleWhileRevalidate.Seconds())))
	}

	if batch {
		writeJSON(w, status, responses)
		return
	}
	writeJSON(w, status, responses[0])
}

func (s *Server) call(r *http.Request, path string) (trpcResponse, int) {
	if r.Method != http.MethodGet {
		return newTRPCError(path, http.StatusMethodNotAllowed, codeMethodNotSupported,
			"METHOD_NOT_SUPPORTED", fmt.Sprintf("Unsupported %s-request to query procedure at path %q", r.Method, path)), http.StatusMethodNotAllowed
	}

	proc, ok := s.procedures[path]
	if !ok {
		return newTRPCError(path, http.StatusNotFound, codeNotFound,
			"NOT_FOUND", fmt.Sprintf("No \"query\"-procedure on path %q", path)), http.StatusNotFound
	}

	data, err := proc(r.Context())
	if err != nil {
		s.logger.Error("tRPC procedure failed", zap.String("path", path), zap.Error(err))
		return newTRPCError(path, http.StatusInternalServerError, codeInternal,
			"INTERNAL_SERVER_ERROR", "Internal server error"), http.StatusInternalServerError
	}

	return trpcResponse{Result: &trpcResult{Data: data}}, http.StatusOK
}

// isCacheable allows edge caching only for successful GETs of videos.*
// procedures.
func isCacheable(method string, paths []string, responses []trpcResponse) bool {
	if method != http.MethodGet {
		return false
	}
	for i, path := range paths {
		if !strings.HasPrefix(path, "videos.") || responses[i].Error != nil {
			return false
		}
	}
	return true
}

func (s *Server) videosGet(ctx context.Context) (any, error) {
	videos, err := s.deps.Videos.Videos(ctx)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		return []any{}, nil
	}
	return videos, nil
}
