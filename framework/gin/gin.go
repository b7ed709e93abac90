// Package jwtgin adapts the bearer token middleware to gin.
package jwtgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	bearerauth "github.com/batchprot/bearer-auth"
	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/validator"
)

// DefaultClaimsKey is the gin context key the verified identity is stored under.
const DefaultClaimsKey = "jwt"

var (
	ErrMissingClaims = errors.New("no JWT claims found in context")
	ErrInvalidClaims = errors.New("invalid JWT claims type")
)

type ginContextKey struct{}

type GinMiddlewareConfig struct {
	errorHandler      func(*gin.Context, error)
	contextKey        string
	middlewareOptions []bearerauth.Option
}

// NewGinMiddleware creates a gin middleware that authenticates requests with
// v. The identity is stored in the gin context under the claims key and in
// the request context for core.GetClaims.
func NewGinMiddleware(v core.TokenValidator, opts ...Option) (gin.HandlerFunc, error) {
	config := &GinMiddlewareConfig{
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
			c, ok := r.Context().Value(ginContextKey{}).(*gin.Context)
			if !ok || c == nil {
				bearerauth.DefaultErrorHandler(w, r, err)
				return
			}
			config.errorHandler(c, err)
		}),
	}, config.middlewareOptions...)

	middleware, err := bearerauth.New(middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		encounteredError := true
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if identity, err := core.GetClaims[*validator.VerifiedIdentity](r.Context()); err == nil {
				c.Set(config.contextKey, identity)
			}

			c.Next()
		}

		req := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, req)

		if encounteredError {
			c.Abort()
		}
	}, nil
}

// DefaultErrorHandler aborts with the standard 401 response.
func DefaultErrorHandler(c *gin.Context, _ error) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"detail": bearerauth.UnauthorizedDetail,
	})
}

// GetClaims returns the verified identity stored under contextKey, or under
// DefaultClaimsKey when contextKey is empty.
func GetClaims(c *gin.Context, contextKey string) (*validator.VerifiedIdentity, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	identity, ok := claims.(*validator.VerifiedIdentity)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return identity, nil
}
