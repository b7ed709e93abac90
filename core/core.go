// Package core provides framework-agnostic bearer token checking that can be
// used across different transport layers (HTTP, gRPC, etc.).
//
// The Core type encapsulates the checking logic and can be wrapped by
// transport-specific adapters.
package core

import (
	"context"
	"time"

	"github.com/batchprot/bearer-auth/telemetry"
	"github.com/batchprot/bearer-auth/validator"
)

// TokenValidator verifies a token and returns the authenticated identity.
// *validator.Validator implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*validator.VerifiedIdentity, error)
}

// Core is the framework-agnostic authentication boundary. It is the single
// place where verification failures are logged, counted and collapsed into
// an opaque *AuthFailure.
type Core struct {
	validator           TokenValidator
	credentialsOptional bool

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// CheckToken validates a token string and returns the verified identity.
//
//   - If token is empty and credentialsOptional is true, returns (nil, nil)
//   - If token is empty and credentialsOptional is false, returns an
//     *AuthFailure wrapping ErrJWTMissing
//   - Otherwise, validates the token using the configured validator
//
// On success the returned value is a *validator.VerifiedIdentity. Every
// error matches ErrUnauthenticated.
func (c *Core) CheckToken(ctx context.Context, token string) (any, error) {
	if token == "" {
		if c.credentialsOptional {
			c.logger.Debug("No token provided, but credentials are optional")
			return nil, nil
		}

		c.logger.Warn("No token provided and credentials are required")
		c.metrics.IncCounter(telemetry.MetricVerifications, map[string]string{"outcome": ErrorCodeTokenMissing})
		return nil, newAuthFailure(ErrJWTMissing)
	}

	ctx, span := c.tracer.StartSpan(ctx, "auth.check_token")
	defer span.Finish()

	start := time.Now()
	identity, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		failure := newAuthFailure(err)
		c.logger.Warn("Token validation failed", "code", failure.Code, "error", err, "duration", duration)
		c.metrics.IncCounter(telemetry.MetricVerifications, map[string]string{"outcome": failure.Code})
		span.SetTag("auth.error_code", failure.Code)
		span.RecordError(err)
		return nil, failure
	}

	c.logger.Debug("Token validated successfully", "subject", identity.Subject, "duration", duration)
	c.metrics.IncCounter(telemetry.MetricVerifications, map[string]string{"outcome": "success"})
	span.SetTag("auth.subject", identity.Subject)
	return identity, nil
}
