// Package server exposes the produced projection API over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/healthsync/internal/archive"
	"github.com/claude/healthsync/internal/service"
	"github.com/claude/healthsync/internal/widget"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc     *service.Service
	archive *archive.Archive
	bridge  *widget.Bridge
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(svc *service.Service, arch *archive.Archive, bridge *widget.Bridge, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		archive: arch,
		bridge:  bridge,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
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

	// Write endpoint (API key required)
	s.router.Route("/api/v1/write", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey, s.log))
		r.Post("/", s.handleWrite)
	})

	// Projection endpoints (read-only, no auth)
	s.router.Get("/api/v1/daily", s.handleDaily)
	s.router.Get("/api/v1/weekly", s.handleWeekly)
	s.router.Get("/api/v1/archive", s.handleArchive)
	s.router.Get("/api/v1/widgets/steps", s.handleWidgetSteps)
	s.router.Get("/api/v1/widgets/hydration", s.handleWidgetHydration)
	s.router.Get("/api/v1/permissions", s.handlePermissions)
	s.router.Post("/api/v1/permissions/request", s.handlePermissionsRequest)
	s.router.Post("/api/v1/settings/open", s.handleSettingsOpen)
	s.router.Get("/api/v1/health", s.handleHealth)
}
