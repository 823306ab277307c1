package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/approach"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	registry *approach.Registry
	index    ports.SearchIndex
	blobs    ports.BlobStore
	bus      ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	approachTimeout time.Duration
}

// Config holds HTTP server configuration
type Config struct {
	Port     int
	Registry *approach.Registry
	Index    ports.SearchIndex
	Blobs    ports.BlobStore
	Bus      ports.EventBus
	Metrics  ports.MetricsCollector
	Logger   *zap.Logger

	// ApproachTimeout bounds a single /ask or /chat request.
	ApproachTimeout time.Duration
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:          router,
		registry:        cfg.Registry,
		index:           cfg.Index,
		blobs:           cfg.Blobs,
		bus:             cfg.Bus,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		approachTimeout: cfg.ApproachTimeout,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Question answering
	s.router.POST("/ask", s.handleAsk)
	s.router.POST("/chat", s.handleChat)

	// Content files
	s.router.GET("/content/*name", s.handleContent)

	// Document management
	s.router.POST("/documents", s.handleUploadDocument)
	s.router.POST("/get_documents", s.handleGetDocuments)
	s.router.POST("/get_search", s.handleGetSearch)
	s.router.POST("/delete_all_documents", s.handleDeleteAllDocuments)
	s.router.POST("/delete_document", s.handleDeleteDocument)

	// Front end feature flags
	s.router.GET("/config", s.handleConfig)
}

// SetupWebSocket adds WebSocket handler to the server
func (s *Server) SetupWebSocket(handler interface{}) {
	if wsHandler, ok := handler.(interface {
		HandleIngestStream(*gin.Context)
	}); ok {
		s.router.GET("/ws/ingest", wsHandler.HandleIngestStream)
	}
}

// Handler exposes the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()))
	}
}
