package core

import (
	"errors"

	"github.com/batchprot/bearer-auth/telemetry"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// The Core must be configured with a TokenValidator using WithValidator.
// All other options are optional.
//
// Example:
//
//	c, err := core.New(
//	    core.WithValidator(v),
//	    core.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Core, error) {
	c := &Core{
		credentialsOptional: false,
		logger:              telemetry.NopLogger{},
		metrics:             telemetry.NoopMetrics{},
		tracer:              telemetry.NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.validator == nil {
		return nil, errors.New("validator is required but not set (use WithValidator option)")
	}

	return c, nil
}

// WithValidator sets the validator for the Core.
// This is a required option.
func WithValidator(v TokenValidator) Option {
	return func(c *Core) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = v
		return nil
	}
}

// WithCredentialsOptional configures whether credentials are optional.
//
// When set to true, requests without tokens will be allowed to proceed
// without validation. The claims will be nil in the context.
//
// When set to false (default), requests without tokens are rejected.
func WithCredentialsOptional(optional bool) Option {
	return func(c *Core) error {
		c.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger for the Core. *slog.Logger and the adapters
// in the telemetry package can be used.
func WithLogger(logger telemetry.Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for verification outcomes.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(c *Core) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer used to record a span per checked token.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(c *Core) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		c.tracer = tracer
		return nil
	}
}
