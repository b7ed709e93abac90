// Package jwtecho adapts the bearer token middleware to echo.
package jwtecho

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	bearerauth "github.com/batchprot/bearer-auth"
	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/validator"
)

// DefaultClaimsKey is the echo context key the verified identity is stored under.
const DefaultClaimsKey = "jwt"

type echoContextKey struct{}

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler      func(echo.Context, error) error
	contextKey        string
	middlewareOptions []bearerauth.Option
}

// NewEchoMiddleware creates an echo middleware that authenticates requests
// with v.
func NewEchoMiddleware(v core.TokenValidator, opts ...Option) (echo.MiddlewareFunc, error) {
	config := &echoMiddlewareConfig{
		errorHandler: DefaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	middlewareOpts := append([]bearerauth.Option{
		bearerauth.WithValidator(v),
		bearerauth.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(echoContextKey{}).(echo.Context)
			if !ok || c == nil {
				bearerauth.DefaultErrorHandler(w, r, err)
				return
			}
			if herr := config.errorHandler(c, err); herr != nil {
				c.Error(herr)
			}
		}),
	}, config.middlewareOptions...)

	middleware, err := bearerauth.New(middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if identity, err := core.GetClaims[*validator.VerifiedIdentity](r.Context()); err == nil {
					c.Set(config.contextKey, identity)
				}

				nextErr = next(c)
			}

			req := c.Request().WithContext(context.WithValue(c.Request().Context(), echoContextKey{}, c))
			middleware.CheckJWT(handler).ServeHTTP(c.Response(), req)

			return nextErr
		}
	}, nil
}

// DefaultErrorHandler writes the standard 401 response.
func DefaultErrorHandler(c echo.Context, _ error) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"detail": bearerauth.UnauthorizedDetail,
	})
}

// GetClaims extracts the verified identity from the echo context.
func GetClaims(c echo.Context, contextKey string) (*validator.VerifiedIdentity, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	identity, ok := c.Get(contextKey).(*validator.VerifiedIdentity)
	return identity, ok
}
