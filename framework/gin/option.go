package jwtgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	bearerauth "github.com/batchprot/bearer-auth"
)

// Option defines a functional option for configuring the middleware
type Option func(*GinMiddlewareConfig) error

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *GinMiddlewareConfig) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets the gin context key the identity is stored under.
func WithContextKey(key string) Option {
	return func(config *GinMiddlewareConfig) error {
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
	return func(config *GinMiddlewareConfig) error {
		config.middlewareOptions = append(config.middlewareOptions, opts...)
		return nil
	}
}
