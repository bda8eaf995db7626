// Package server provides the HTTP server and routing for the resolution service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/dividends/internal/config"
	"github.com/aristath/dividends/internal/di"
	resolutionhandlers "github.com/aristath/dividends/internal/modules/resolution/handlers"
	"github.com/aristath/dividends/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container        // DI container with all services
	Jobs      *di.JobInstances     // jobs that can be triggered through the API
	Scheduler *scheduler.Scheduler // optional, reported by the status endpoint
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
	logHandlers    *LogHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			cfg.Container,
			cfg.Jobs,
			cfg.Scheduler,
		),
		logHandlers: NewLogHandlers(cfg.Log, cfg.Config.LogFile),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Instrument and dividend queries
		resolutionHandler := resolutionhandlers.NewHandler(s.container.ResolutionService, s.log)
		resolutionHandler.RegisterRoutes(r)

		// Suppliers and caches
		r.Get("/suppliers", s.systemHandlers.HandleSuppliers)
		r.Post("/cache/prune", s.systemHandlers.HandlePruneCache)

		// System monitoring and operations
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
		})
		r.Post("/jobs/database-check", s.systemHandlers.HandleTriggerDatabaseCheck)

		// Logs
		r.Get("/logs", s.logHandlers.HandleGetLogs)
		r.Get("/logs/errors", s.logHandlers.HandleGetErrors)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
