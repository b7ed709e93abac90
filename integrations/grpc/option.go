package grpc

import (
	"errors"

	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/telemetry"
)

// Option configures the interceptor.
type Option func(*JWTInterceptor) error

// coreBuilder accumulates core options until New builds the Core.
type coreBuilder struct {
	validator           core.TokenValidator
	credentialsOptional bool
	logger              telemetry.Logger
	metrics             telemetry.Metrics
	tracer              telemetry.Tracer
}

func (b *coreBuilder) build() (*core.Core, error) {
	if b.validator == nil {
		return nil, errors.New("validator is required, use WithValidator option")
	}

	opts := []core.Option{
		core.WithValidator(b.validator),
		core.WithCredentialsOptional(b.credentialsOptional),
	}
	if b.logger != nil {
		opts = append(opts, core.WithLogger(b.logger))
	}
	if b.metrics != nil {
		opts = append(opts, core.WithMetrics(b.metrics))
	}
	if b.tracer != nil {
		opts = append(opts, core.WithTracer(b.tracer))
	}

	return core.New(opts...)
}

// WithValidator sets the token validator (REQUIRED).
//
// Example:
//
//	interceptor, _ := grpc.New(
//	    grpc.WithValidator(v),
//	    grpc.WithLogger(logger),
//	)
func WithValidator(v core.TokenValidator) Option {
	return func(i *JWTInterceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		i.coreBuilder.validator = v
		return nil
	}
}

// WithCredentialsOptional allows calls without a bearer token to proceed.
// The context of such calls carries no identity.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *JWTInterceptor) error {
		i.coreBuilder.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger used by both the interceptor and the core.
func WithLogger(logger telemetry.Logger) Option {
	return func(i *JWTInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.coreBuilder.logger = logger
		i.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for verification outcomes.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(i *JWTInterceptor) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		i.coreBuilder.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer for verification spans.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(i *JWTInterceptor) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		i.coreBuilder.tracer = tracer
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor which reads the "authorization" metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *JWTInterceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *JWTInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes gRPC methods from token checking.
// Methods use the full name, e.g. "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	return func(i *JWTInterceptor) error {
		for _, method := range methods {
			if method == "" {
				return errors.New("excluded method cannot be empty")
			}
			i.excludedMethods[method] = true
		}
		return nil
	}
}
