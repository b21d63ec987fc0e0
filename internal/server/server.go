// Package server provides the HTTP server and routing for brokerhub.
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

	"brokerhub/internal/config"
	accounthandlers "brokerhub/internal/modules/accounts/handlers"
	portfoliohandlers "brokerhub/internal/modules/portfolio/handlers"
	synchandlers "brokerhub/internal/modules/sync/handlers"
	tradinghandlers "brokerhub/internal/modules/trading/handlers"
)

// Handlers collects the module handlers mounted under /api
type Handlers struct {
	Accounts  *accounthandlers.Handler
	Portfolio *portfoliohandlers.Handler
	Sync      *synchandlers.Handler
	Trading   *tradinghandlers.Handler
}

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Config   *config.Config
	Handlers Handlers
}

// Server is the HTTP front of the service
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	handlers       Handlers
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		handlers:       cfg.Handlers,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Config.DataDir),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.handlers.Accounts.RegisterRoutes(r)
		s.handlers.Sync.RegisterRoutes(r)
		s.handlers.Portfolio.RegisterRoutes(r)
		s.handlers.Trading.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/info", s.systemHandlers.HandleSystemInfo)
		})
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
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
