// Package api is the HTTP ingress: the webhook endpoint consumed by the
// event-delivery service, a health probe, and a stateless login used by
// downstream multi-tenant flows.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prodimg/alttexter/pkg/pipeline"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// Orchestrator is the processing contract the handlers depend on.
type Orchestrator interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server hosts the HTTP endpoints.
type Server struct {
	orchestrator Orchestrator
	httpServer   *http.Server
}

// NewServer creates the server listening on the given port.
func NewServer(orchestrator Orchestrator, port string) *Server {
	s := &Server{orchestrator: orchestrator}
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(recovery(), requestID(), requestLogger(), securityHeaders())

	r.GET("/health", s.healthHandler)
	r.POST("/describe", s.describeHandler)
	r.POST("/login", s.loginHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Message: c.Request.URL.Path})
	})
	return r
}

// Start serves until Shutdown is called. http.ErrServerClosed is swallowed
// so a graceful shutdown does not surface as a failure.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
