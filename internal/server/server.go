// Package server wires the HTTP API: public health routes, the
// authenticated auth-check route and the Prometheus endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bearerauth "github.com/batchprot/bearer-auth"
	"github.com/batchprot/bearer-auth/core"
	jwtgin "github.com/batchprot/bearer-auth/framework/gin"
	"github.com/batchprot/bearer-auth/telemetry"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

const (
	defaultAPIPrefix = "/api/v1"
	shutdownTimeout  = 10 * time.Second
)

// Server is the HTTP API.
type Server struct {
	engine *gin.Engine

	apiPrefix string
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	tracer    telemetry.Tracer
	gatherer  prometheus.Gatherer
	extractor bearerauth.TokenExtractor
}

// New builds the API around v. Requests to the auth-check route are
// authenticated with v; all other routes are public.
func New(v core.TokenValidator, opts ...Option) (*Server, error) {
	if v == nil {
		return nil, errors.New("validator is required")
	}

	s := &Server{
		apiPrefix: defaultAPIPrefix,
		logger:    telemetry.NopLogger{},
		metrics:   telemetry.NoopMetrics{},
		tracer:    telemetry.NoopTracer{},
		gatherer:  prometheus.DefaultGatherer,
		extractor: bearerauth.AuthHeaderTokenExtractor,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	authenticate, err := jwtgin.NewGinMiddleware(v,
		jwtgin.WithMiddlewareOptions(
			bearerauth.WithLogger(s.logger),
			bearerauth.WithMetrics(s.metrics),
			bearerauth.WithTracer(s.tracer),
			bearerauth.WithTokenExtractor(s.extractor),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build auth middleware: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestID(), s.accessLog())

	engine.GET("/", status)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := engine.Group(s.apiPrefix)
	api.GET("/health/", status)
	api.GET("/auth-check/", authenticate, authCheck)

	s.engine = engine
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func authCheck(c *gin.Context) {
	identity, err := jwtgin.GetClaims(c, "")
	if err != nil {
		jwtgin.DefaultErrorHandler(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "You are authenticated!",
		"user_id": identity.Subject,
	})
}

// requestID propagates a valid incoming X-Request-ID or assigns a new one.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(RequestIDHeader))
	}
}
