package api

import (
	"errors"
	"net/http"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/callback"
	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/scanner"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server.
type Server struct {
	config  config.ServerConfig
	scanner *scanner.Scanner
	watcher *scanner.Watcher
	logger  *zap.SugaredLogger
	router  *gin.Engine
}

// New creates a new API server.
func New(cfg config.ServerConfig, scan *scanner.Scanner, watcher *scanner.Watcher, logger *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:  cfg,
		scanner: scan,
		watcher: watcher,
		logger:  logger,
		router:  gin.New(),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readyHandler)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/scan/target", s.scanTargetHandler)

		v1.POST("/watch/start", s.startWatchHandler)
		v1.POST("/watch/stop", s.stopWatchHandler)
		v1.GET("/watch/status", s.watchStatusHandler)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.scanner.Registry(), promhttp.HandlerOpts{})))
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		c.Next()

		s.logger.Debugw("Request completed",
			"path", path,
			"status", c.Writer.Status(),
			"method", c.Request.Method,
		)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "port-recon",
	})
}

func (s *Server) readyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "port-recon",
	})
}

// scanTargetHandler runs a scan synchronously and returns the report.
func (s *Server) scanTargetHandler(c *gin.Context) {
	var req ScanTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	scanID := uuid.New().String()
	opts := []scanner.ScanOption{scanner.WithScanID(scanID)}

	var reporter *callback.Reporter
	if req.ProgressURL != "" || req.CompleteURL != "" {
		reporter = callback.NewReporter(scanID, req.ProgressURL, req.CompleteURL, c.GetHeader("X-Internal-API-Key"), s.logger)
		opts = append(opts, scanner.WithProgress(reporter.ReportBatch))
	}

	report, err := s.scanner.Scan(req.toScanRequest(), opts...)

	if reporter != nil {
		if cbErr := reporter.ReportComplete(report, err); cbErr != nil {
			s.logger.Warnw("Failed to report completion", "scan_id", scanID, "error", cbErr)
		}
	}

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scanner.ErrInvalidAddress) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) startWatchHandler(c *gin.Context) {
	if err := s.watcher.Start(); err != nil {
		status := http.StatusConflict
		if errors.Is(err, scanner.ErrInvalidAddress) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "started",
		"message": "Watcher started",
	})
}

func (s *Server) stopWatchHandler(c *gin.Context) {
	s.watcher.Stop()
	c.JSON(http.StatusOK, gin.H{
		"status":  "stopped",
		"message": "Watcher stopped",
	})
}

func (s *Server) watchStatusHandler(c *gin.Context) {
	running := s.watcher.IsRunning()
	status := "idle"
	if running {
		status = "running"
	}

	c.JSON(http.StatusOK, WatchStatus{
		Status:     status,
		Running:    running,
		Interval:   s.watcher.Interval().String(),
		LastReport: s.watcher.LastReport(),
	})
}
