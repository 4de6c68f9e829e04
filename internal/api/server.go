package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foxzi/leadmail/internal/campaign"
	"github.com/foxzi/leadmail/internal/config"
	"github.com/foxzi/leadmail/internal/importer"
	"github.com/foxzi/leadmail/internal/metrics"
	"github.com/foxzi/leadmail/internal/store"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      store.Store
	runner     *campaign.Runner
	importer   *importer.Importer
	config     *config.ServerConfig
	metrics    *metrics.Metrics
	static     http.Handler
	logger     *slog.Logger
	startTime  time.Time
	version    string
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records request metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStatic serves h for every path outside /api
func WithStatic(h http.Handler) Option {
	return func(s *Server) { s.static = h }
}

// WithVersion sets the version reported by /health
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a new API server
func NewServer(st store.Store, runner *campaign.Runner, cfg *config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     st,
		runner:    runner,
		importer:  importer.New(st.Leads(), logger),
		config:    cfg,
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleListLeads)
			r.Post("/", s.handleCreateLead)
			r.Post("/upload", s.handleUploadLeads)
			r.Post("/paste", s.handlePasteLeads)
			r.Get("/{id}", s.handleGetLead)
			r.Put("/{id}", s.handleUpdateLead)
			r.Delete("/{id}", s.handleDeleteLead)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleSaveTemplate)
			r.Get("/{id}", s.handleGetTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
		})

		r.Get("/smtp-settings", s.handleGetSMTPSettings)
		r.Post("/smtp-settings", s.handleSaveSMTPSettings)
		r.Post("/smtp-test", s.handleSMTPTest)
		r.Post("/smtp-test-email", s.handleSMTPTestEmail)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/send", s.handleSendCampaign)
			r.Get("/logs", s.handleListLogs)
			r.Get("/{id}", s.handleGetCampaign)
			r.Delete("/{id}", s.handleDeleteCampaign)
			r.Get("/{id}/logs", s.handleListCampaignLogs)
		})

		r.Post("/clear-all", s.handleClearAll)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.sendError(w, r, notFound("Route not found"))
		})
	})

	if s.static != nil {
		s.router.Handle("/*", s.static)
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
