// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/retroguide/internal/api"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	services *Services
	router   *gin.Engine
	server   *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, services *Services) *Server {
	return &Server{
		config:   cfg,
		services: services,
	}
}

// Router builds the router on first use
func (s *Server) Router() *gin.Engine {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)

	apiGroup := s.router.Group("/api")

	svc := s.services
	api.SetupHealthRoutes(apiGroup, svc.DB, svc.CacheHealth())
	api.SetupChannelRoutes(apiGroup, svc.Channels, svc.Playlist, svc.Resolver)
	api.SetupScheduleRoutes(apiGroup, svc.Timeline, s.config.Guide.Window())
	api.SetupContentRoutes(apiGroup, svc.Content, svc.Resolver)
	api.SetupDurationRoutes(apiGroup, svc.Warmer, svc.Content)
	api.SetupGuideRoutes(s.router, apiGroup, svc.Exporter, svc.Publisher)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Stream playlists point at /media unless an external media host is configured
	if s.config.Guide.MediaBaseURL == "" {
		s.router.Static("/media", s.config.Media.LibraryPath)
	}
}

// Start starts background workers and the HTTP server. It blocks until the
// server stops.
func (s *Server) Start() error {
	s.Router()

	if s.services.Watcher != nil {
		if err := s.services.Watcher.Start(); err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}
	s.services.Publisher.Start(context.Background())

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Str("base_url", s.config.Guide.BaseURL).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.services.Close()

	logger.Log.Info().Msg("Server stopped")
	return nil
}
