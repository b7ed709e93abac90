package jwtecho

import (
	"errors"

	"github.com/labstack/echo/v4"

	bearerauth "github.com/batchprot/bearer-auth"
)

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig) error

// WithErrorHandler sets a custom error handler
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *echoMiddlewareConfig) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets a custom context key to store the identity
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) error {
		if key == "" {
			return errors.New("context key cannot be empty")
		}
		config.contextKey = key
		return nil
	}
}

// WithMiddlewareOptions passes options through to the underlying
// bearerauth.Middleware, e.g. WithTokenExtractor or WithLogger.
func WithMiddlewareOptions(opts ...bearerauth.Option) Option {
	return func(config *echoMiddlewareConfig) error {
		config.middlewareOptions = append(config.middlewareOptions, opts...)
		return nil
	}
}
