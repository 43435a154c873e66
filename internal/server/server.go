// Package server assembles the HTTP surface: the JSON API, the WebSocket
// session endpoint, health probes, Prometheus metrics and the MCP endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrWong99/parla/internal/health"
	"github.com/MrWong99/parla/internal/interference"
	"github.com/MrWong99/parla/internal/observe"
	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/scoring"
	"github.com/MrWong99/parla/internal/session"
)

// ProgressService reads and updates the learner's record.
// [*progress.Service] implements it.
type ProgressService interface {
	Load(ctx context.Context) (progress.UserProgress, error)
	RecordSession(ctx context.Context, phrases, seconds int, mode string) (progress.UserProgress, error)
	Reset(ctx context.Context) error
	Ledger() *progress.Ledger
}

var _ ProgressService = (*progress.Service)(nil)

// SessionHandler serves WebSocket sessions. [*bridge.Handler] implements it.
type SessionHandler interface {
	http.Handler
	Sessions() []session.Snapshot
}

// Config holds the dependencies of a [Server]. Nil handlers leave their
// routes unmounted.
type Config struct {
	Progress ProgressService
	Modes    []session.Mode
	Sessions SessionHandler
	Health   *health.Handler

	// MetricsHandler serves /metrics.
	MetricsHandler http.Handler

	// MCP is mounted at MCPPath.
	MCP     http.Handler
	MCPPath string

	AllowedOrigins []string

	Analyzer *scoring.Analyzer
	Detector *interference.Detector
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg    Config
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(cfg Config) *Server {
	if cfg.Analyzer == nil {
		cfg.Analyzer = scoring.NewAnalyzer()
	}
	if cfg.Detector == nil {
		cfg.Detector = interference.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Modes == nil {
		cfg.Modes = session.Modes()
	}
	if cfg.MCPPath == "" {
		cfg.MCPPath = "/mcp"
	}
	s := &Server{cfg: cfg, log: cfg.Logger, router: chi.NewRouter()}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(observe.Middleware(s.cfg.Metrics))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS(s.cfg.AllowedOrigins))

	if s.cfg.Health != nil {
		s.cfg.Health.Register(s.router)
	}
	if s.cfg.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.cfg.MetricsHandler)
	}
	if s.cfg.MCP != nil {
		s.router.Handle(s.cfg.MCPPath, s.cfg.MCP)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/detect", s.handleDetect)

		r.Get("/modes", s.handleModes)
		r.Get("/prompts", s.handlePromptKinds)
		r.Get("/prompts/{kind}", s.handlePrompts)
		r.Get("/builder", s.handleBuilderSets)

		if s.cfg.Progress != nil {
			r.Get("/progress", s.handleGetProgress)
			r.Delete("/progress", s.handleResetProgress)
			r.Post("/progress/sessions", s.handleRecordSession)
		}
		if s.cfg.Sessions != nil {
			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/ws", s.cfg.Sessions.ServeHTTP)
		}
	})
}
