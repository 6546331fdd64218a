// Package httpapi exposes the runner over HTTP.
//
// The httpapi package mirrors the inbound service boundary: a run endpoint
// accepting source text and returning the textual result, a health check,
// and a root redirect. Submissions are bounded by a worker semaphore so a
// burst of requests cannot pile unbounded executions onto the container.
package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/agentbox/agentbox/config"
)

// Executor runs one submission and returns its textual result.
type Executor interface {
	Execute(ctx context.Context, source string) string
}

type runRequest struct {
	Code string `json:"code" binding:"required"`
}

type runResponse struct {
	Output string `json:"output"`
}

// Server is the HTTP front end of the runner.
type Server struct {
	logger *zap.Logger
	cfg    *config.Config
	exec   Executor
	sem    *semaphore.Weighted
	router *gin.Engine
}

// New creates a Server with its routes registered
func New(cfg *config.Config, logger *zap.Logger, exec Executor) *Server {
	if cfg.Logging.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		logger: logger,
		cfg:    cfg,
		exec:   exec,
		sem:    semaphore.NewWeighted(int64(cfg.Server.MaxWorkers)),
	}

	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	v1 := router.Group("/v1")
	v1.POST("/run/", s.handleRun)
	v1.GET("/health/", s.handleHealth)

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/v1/health/")
	})

	s.router = router
	return s
}

// Handler returns the router for serving and for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on the configured port
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.HTTPPort)
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	// Bounded worker pool: block until a slot frees up or the client leaves.
	if err := s.sem.Acquire(c.Request.Context(), 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down or client disconnected"})
		return
	}
	defer s.sem.Release(1)

	s.logger.Info("submission received", zap.Int("code_len", len(req.Code)))
	output := s.exec.Execute(c.Request.Context(), req.Code)
	c.JSON(http.StatusOK, runResponse{Output: output})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// corsMiddleware allows all origins, matching the permissive posture of the
// service boundary
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
