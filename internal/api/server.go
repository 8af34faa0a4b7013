// Package api exposes the recommender and the mastery tracker over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/mastery"
	"github.com/themycoder/guitarchord-sub001/internal/reco"
)

// Recommender is the part of reco.Engine the handlers use.
type Recommender interface {
	RecommendNext(p reco.Params) ([]reco.Recommendation, error)
	SuggestQuizFor(lessonIDs []string, history map[string]reco.Attempt) ([]catalog.QuizItem, error)
	MetaFor(id string) (catalog.Lesson, bool, error)
	Status() reco.Status
	Reload(ctx context.Context) error
}

// Check reports whether a dependency is healthy.
type Check func(ctx context.Context) error

// Config holds the dependencies of the HTTP surface.
type Config struct {
	Engine  Recommender
	Tracker *mastery.Tracker
	// Checks are run by /readyz in addition to the snapshot check.
	Checks map[string]Check
}

// Server routes HTTP requests to the engine and tracker.
type Server struct {
	engine  Recommender
	tracker *mastery.Tracker
	checks  map[string]Check
}

// NewServer creates a server. A nil tracker defaults to an in-memory one.
func NewServer(cfg Config) *Server {
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = mastery.NewTracker(mastery.TrackerConfig{})
	}
	return &Server{
		engine:  cfg.Engine,
		tracker: tracker,
		checks:  cfg.Checks,
	}
}

// Handler returns the router.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/reco/next", s.handleRecommendQuery)
	mux.HandleFunc("POST /v1/reco/next", s.handleRecommendBody)
	mux.HandleFunc("POST /v1/reco/quiz", s.handleQuiz)
	mux.HandleFunc("GET /v1/lessons/{id}", s.handleLesson)

	mux.HandleFunc("GET /v1/users/{id}/state", s.handleState)
	mux.HandleFunc("POST /v1/users/{id}/mastery", s.handleMastery)
	mux.HandleFunc("POST /v1/users/{id}/seen", s.handleSeen)
	mux.HandleFunc("PUT /v1/users/{id}/rank", s.handleRank)
	mux.HandleFunc("PUT /v1/users/{id}/goals", s.handleGoals)
	mux.HandleFunc("POST /v1/level/evaluate", s.handleEvaluateLevel)

	mux.HandleFunc("POST /admin/reload", s.handleReload)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readyResponse struct {
	Status   string            `json:"status"`
	Snapshot reco.Status       `json:"snapshot"`
	Checks   map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ready", Snapshot: s.engine.Status()}
	code := http.StatusOK
	if !resp.Snapshot.Initialized {
		resp.Status = "not ready"
		code = http.StatusServiceUnavailable
	}

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				slog.Warn("readiness check failed", "check", name, "error", err)
				resp.Checks[name] = err.Error()
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reload(r.Context()); err != nil {
		slog.Error("manual reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, reco.ErrNotInitialized):
		code = http.StatusServiceUnavailable
	case errors.Is(err, mastery.ErrEmptyID),
		errors.Is(err, mastery.ErrInvalidMastery),
		errors.Is(err, mastery.ErrInvalidRank),
		errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, errNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
