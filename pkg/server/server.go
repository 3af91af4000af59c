package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/percorso"
	"github.com/soundprediction/percorso/pkg/config"
	"github.com/soundprediction/percorso/pkg/server/handlers"
	"github.com/soundprediction/percorso/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	router   *gin.Engine
	percorso percorso.Percorso
	server   *http.Server
	logger   *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, client percorso.Percorso) *Server {
	return &Server{
		config:   cfg,
		percorso: client,
		logger:   slog.Default(),
	}
}

// SetLogger replaces the logger used for lifecycle messages.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(requestIDMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.percorso)
	retrieveHandler := handlers.NewRetrieveHandler(s.percorso)

	// Probe endpoints
	s.router.GET("/healthz", healthHandler.Healthz)
	s.router.GET("/readyz", healthHandler.Readyz)

	// API v1 routes
	v1 := s.router.Group("/v1")
	{
		v1.POST("/retrieve", retrieveHandler.Retrieve)
		v1.POST("/answer", retrieveHandler.Answer)
		v1.POST("/entities", retrieveHandler.Entities)
	}
}

// Start starts the server. It blocks until the server exits and
// returns nil on a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags every request with an ID, honoring an
// inbound X-Request-ID header, and echoes the ID on the response so
// callers can correlate logs.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(c.Request.Context(), types.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
