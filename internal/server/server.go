package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meltforce/vitalsync/internal/engine"
	"github.com/meltforce/vitalsync/internal/storage"
)

// Engine is the slice of the sync engine the HTTP surface needs.
type Engine interface {
	Sync(ctx context.Context, opts engine.Options) engine.Result
	SyncStatus() engine.Status
	StoredSnapshot(ctx context.Context, userID string) (*storage.CurrentSnapshotRow, error)
	History(ctx context.Context, userID string, daysBack, limit int) ([]storage.HistoryLogRow, error)
}

// Foregrounder wakes the background scheduler for an immediate pass.
type Foregrounder interface {
	Foreground()
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine     Engine
	foreground Foregrounder
	log        *slog.Logger
	apiKey     string
	router     chi.Router
}

// New creates a new Server with all routes configured.
func New(eng Engine, fg Foregrounder, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		engine:     eng,
		foreground: fg,
		log:        log,
		apiKey:     apiKey,
		router:     chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Mutating endpoints (API key required)
	s.router.Route("/api/v1/sync", func(r chi.Router) {
		r.Get("/status", s.handleSyncStatus)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleSync)
			r.Post("/foreground", s.handleForeground)
		})
	})

	// Read endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/snapshot", s.handleSnapshot)
	s.router.Get("/api/v1/history", s.handleHistory)

	s.router.Handle("/metrics", promhttp.Handler())
}
