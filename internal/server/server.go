// Package server exposes Podium over HTTP.
//
// The router serves the live panels (state, breakdown, SVG charts and a
// WebSocket push of state frames), the recording analysis view, health and
// metrics endpoints, and reverse-proxies /api/* to the analysis backend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/health"
	"github.com/MrWong99/podium/internal/live"
	"github.com/MrWong99/podium/internal/observe"
)

// defaultMaxUpload caps the size of an uploaded recording.
const defaultMaxUpload = 512 << 20

// PanelManager mounts, finds and tears down live panels. *live.Manager
// satisfies it.
type PanelManager interface {
	Mount() (*live.Panel, error)
	Get(id string) (*live.Panel, bool)
	IDs() []string
	Teardown(id string) error
}

// Analyses is the recording upload flow. *analysis.Uploader satisfies it.
type Analyses interface {
	Submit(ctx context.Context, filename string, video io.Reader) (*analysis.Result, error)
	Current() *analysis.Result
	Busy() bool
}

// Config holds the dependencies of the HTTP API.
type Config struct {
	Panels   PanelManager
	Analyses Analyses

	// FillerWords returns the words tallied over report transcripts.
	FillerWords func() []string

	// BackendURL is the analysis backend that /api/* is proxied to.
	BackendURL string

	// Health serves /healthz and /readyz. Optional.
	Health *health.Handler

	// MetricsHandler serves /metrics. Optional.
	MetricsHandler http.Handler

	// Metrics records HTTP and chart instruments. Defaults to
	// observe.DefaultMetrics().
	Metrics *observe.Metrics

	// MaxUploadBytes caps POST /analysis bodies. Default: 512 MiB.
	MaxUploadBytes int64

	// AllowedOrigins lists host patterns (path.Match syntax) of pages that
	// may open panel WebSockets from another origin. Same-origin pages are
	// always allowed.
	AllowedOrigins []string
}

// Server is the Podium HTTP API.
type Server struct {
	panels      PanelManager
	analyses    Analyses
	fillerWords func() []string
	metrics     *observe.Metrics
	maxUpload   int64
	origins     []string
	router      chi.Router
}

// New builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Panels == nil || cfg.Analyses == nil {
		return nil, errors.New("server: panels and analyses are required")
	}
	proxy, err := newBackendProxy(cfg.BackendURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		panels:      cfg.Panels,
		analyses:    cfg.Analyses,
		fillerWords: cfg.FillerWords,
		metrics:     cfg.Metrics,
		maxUpload:   cfg.MaxUploadBytes,
		origins:     slices.Clone(cfg.AllowedOrigins),
	}
	if s.fillerWords == nil {
		s.fillerWords = func() []string { return nil }
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/live/panels", func(r chi.Router) {
		r.Post("/", s.mountPanel)
		r.Get("/", s.listPanels)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getPanel)
			r.Delete("/", s.teardownPanel)
			r.Get("/breakdown", s.panelBreakdown)
			r.Get("/charts/{field}", s.panelChart)
			r.Get("/ws", s.panelSocket)
		})
	})

	r.Route("/analysis", func(r chi.Router) {
		r.Post("/", s.submitAnalysis)
		r.Get("/", s.getAnalysis)
		r.Get("/points", s.analysisPoints)
		r.Get("/charts/{series}", s.analysisChart)
		r.Get("/breakdown", s.analysisBreakdown)
		r.Get("/fillers", s.analysisFillers)
	})

	r.Handle("/api/*", proxy)

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("server: failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorBody{Error: fmt.Sprintf(format, args...)})
}
