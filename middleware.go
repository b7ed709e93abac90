package bearerauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/telemetry"
	"github.com/batchprot/bearer-auth/validator"
)

// Middleware authenticates net/http requests carrying a bearer token.
type Middleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              telemetry.Logger

	// Temporary fields used during construction
	validator           core.TokenValidator
	credentialsOptional bool
	metrics             telemetry.Metrics
	tracer              telemetry.Tracer
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from token validation.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new Middleware instance with the supplied options.
//
// Example:
//
//	middleware, err := bearerauth.New(
//	    bearerauth.WithValidator(v),
//	    bearerauth.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions:   true,
		credentialsOptional: false,
		logger:              telemetry.NopLogger{},
		metrics:             telemetry.NoopMetrics{},
		tracer:              telemetry.NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.validator == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrValidatorNil)
	}

	m.applyDefaults()

	if err := m.createCore(); err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	return m, nil
}

// createCore creates the core.Core instance with the configured options
func (m *Middleware) createCore() error {
	c, err := core.New(
		core.WithValidator(m.validator),
		core.WithCredentialsOptional(m.credentialsOptional),
		core.WithLogger(m.logger),
		core.WithMetrics(m.metrics),
		core.WithTracer(m.tracer),
	)
	if err != nil {
		return err
	}
	m.core = c
	return nil
}

// applyDefaults sets default values for optional fields
func (m *Middleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
}

// GetClaims retrieves claims from the context with type safety using generics.
//
// Example:
//
//	identity, err := bearerauth.GetClaims[*validator.VerifiedIdentity](r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(identity.Subject)
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics.
// Use only when you are certain claims exist (e.g., after middleware has run).
func MustGetClaims[T any](ctx context.Context) T {
	claims, err := core.GetClaims[T](ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims checks if claims exist in the context.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}

// Subject returns the authenticated subject stored in ctx by the middleware.
func Subject(ctx context.Context) (string, bool) {
	identity, err := core.GetClaims[*validator.VerifiedIdentity](ctx)
	if err != nil || identity == nil {
		return "", false
	}
	return identity.Subject, true
}

// CheckJWT is the main Middleware function which performs the main logic. It
// is passed a http.Handler which will be called if the token passes
// validation.
func (m *Middleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			m.logger.Debug("skipping token validation for excluded URL",
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		// If we don't validate on OPTIONS and this is OPTIONS
		// then continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.logger.Debug("skipping token validation for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			m.logger.Warn("failed to extract token from request",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, &core.AuthFailure{
				Code: core.ErrorCodeTokenMalformed,
				Err:  fmt.Errorf("error extracting token: %w", err),
			})
			return
		}

		// Core handles the empty token case based on credentialsOptional.
		identity, err := m.core.CheckToken(r.Context(), token)
		if err != nil {
			m.logger.Info("request rejected",
				"code", core.ErrorCode(err),
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, err)
			return
		}

		if identity == nil {
			m.logger.Debug("no credentials provided, continuing without claims (credentials optional)")
			next.ServeHTTP(w, r)
			return
		}

		r = r.Clone(core.SetClaims(r.Context(), identity))
		next.ServeHTTP(w, r)
	})
}
