// Package api exposes reply generation and saved replies over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-reply/internal/reply"
	"github.com/loqalabs/loqa-reply/internal/store"
)

// Drafter generates replies.
type Drafter interface {
	GenerateMulti(ctx context.Context, req reply.Request, regenerate bool) (reply.Result, error)
	GenerateSingle(ctx context.Context, req reply.Request) (reply.Result, error)
}

// Server serves the /api routes.
type Server struct {
	drafter Drafter
	store   *store.Store
	logger  *slog.Logger
}

const (
	ownerHeader  = "X-User-ID"
	defaultOwner = "anonymous"

	// maxBodyBytes bounds JSON and raw MIME request bodies.
	maxBodyBytes = 10 << 20
)

func NewServer(drafter Drafter, st *store.Store, logger *slog.Logger) *Server {
	return &Server{
		drafter: drafter,
		store:   st,
		logger:  logger.With(slog.String("component", "api")),
	}
}

// Register mounts every route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/email/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/email/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /api/email/generate-single", s.handleGenerateSingle)
	mux.HandleFunc("POST /api/email/generate-raw", s.handleGenerateRaw)
	mux.HandleFunc("GET /api/email/test", s.handleTest)

	mux.HandleFunc("POST /api/replies/save", s.handleSave)
	mux.HandleFunc("GET /api/replies/history", s.handleHistory)
	mux.HandleFunc("GET /api/replies/search", s.handleSearch)
	mux.HandleFunc("GET /api/replies/favorites", s.handleFavorites)
	mux.HandleFunc("GET /api/replies/stats", s.handleStats)
	mux.HandleFunc("GET /api/replies/export", s.handleExport)
	mux.HandleFunc("PUT /api/replies/{id}/favorite", s.handleToggleFavorite)
	mux.HandleFunc("DELETE /api/replies/{id}", s.handleDelete)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, cause error) {
	resp := errorResponse{Error: msg}
	if cause != nil {
		resp.Details = cause.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store errors onto status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "saved reply not found", err)
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied", err)
	default:
		s.logger.Error("store operation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "storage failure", err)
	}
}

func owner(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ownerHeader)); id != "" {
		return id
	}
	return defaultOwner
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
