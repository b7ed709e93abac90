package server

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	bearerauth "github.com/batchprot/bearer-auth"
	"github.com/batchprot/bearer-auth/telemetry"
)

// Option configures the Server.
type Option func(*Server) error

// WithAPIPrefix sets the prefix of the versioned routes. Default: /api/v1.
func WithAPIPrefix(prefix string) Option {
	return func(s *Server) error {
		if !strings.HasPrefix(prefix, "/") {
			return errors.New("API prefix must start with /")
		}
		s.apiPrefix = strings.TrimRight(prefix, "/")
		return nil
	}
}

// WithLogger sets the logger for access logs and the auth middleware.
func WithLogger(logger telemetry.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for the auth middleware.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(s *Server) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer for the auth middleware.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(s *Server) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		s.tracer = tracer
		return nil
	}
}

// WithGatherer sets what /metrics exposes. Default: prometheus.DefaultGatherer.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) error {
		if gatherer == nil {
			return errors.New("gatherer cannot be nil")
		}
		s.gatherer = gatherer
		return nil
	}
}

// WithTokenExtractor sets where the auth-check route reads the token from.
// Default: the Authorization header.
func WithTokenExtractor(extractor bearerauth.TokenExtractor) Option {
	return func(s *Server) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		s.extractor = extractor
		return nil
	}
}
