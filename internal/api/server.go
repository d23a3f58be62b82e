package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/argie33/algo-sub006/internal/config"
	"github.com/argie33/algo-sub006/internal/logger"
	"github.com/argie33/algo-sub006/internal/monitoring"
	"github.com/argie33/algo-sub006/internal/quality"
)

// Server exposes the engine's state over a read-only HTTP surface. Record
// ingestion is not part of this API; records reach the engine through the
// embedding service.
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	monitor    *quality.Monitor
	metrics    *monitoring.Metrics
	log        logger.Logger
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, monitor *quality.Monitor, metrics *monitoring.Metrics, log logger.Logger) *Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:  cfg,
		router:  router,
		monitor: monitor,
		metrics: metrics,
		log:     log,
	}
	router.Use(s.requestLogger())
	if metrics != nil {
		router.Use(s.requestMetrics())
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.config.Monitoring.Enabled && s.metrics != nil {
		s.router.GET(s.config.Monitoring.Path, gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/quality", s.handleAllQuality)
		v1.GET("/quality/:symbol", s.handleSymbolQuality)
		v1.GET("/history/:symbol", s.handleHistory)
		v1.GET("/system", s.handleSystem)
		v1.GET("/alerts", s.handleAlerts)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0)
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
