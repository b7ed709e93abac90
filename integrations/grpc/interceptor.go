package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/telemetry"
)

// JWTInterceptor provides bearer token checking for gRPC servers.
type JWTInterceptor struct {
	core            *core.Core
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          telemetry.Logger

	// Internal builder for accumulating core options
	coreBuilder *coreBuilder
}

// New creates a new gRPC interceptor with the provided options.
// WithValidator option is required.
func New(opts ...Option) (*JWTInterceptor, error) {
	interceptor := &JWTInterceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		logger:          telemetry.NopLogger{},
		coreBuilder:     &coreBuilder{},
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	c, err := interceptor.coreBuilder.build()
	if err != nil {
		return nil, err
	}
	interceptor.core = c

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that checks
// the bearer token and makes the verified identity available in the request
// context.
func (i *JWTInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping token validation for excluded method",
				"method", info.FullMethod)
			return handler(ctx, req)
		}

		validatedCtx, err := i.validateRequest(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(validatedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that checks
// the bearer token and makes the verified identity available in the stream
// context.
func (i *JWTInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping token validation for excluded method",
				"method", info.FullMethod)
			return handler(srv, ss)
		}

		validatedCtx, err := i.validateRequest(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          validatedCtx,
		})
	}
}

func (i *JWTInterceptor) validateRequest(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		i.logger.Warn("failed to extract token from gRPC metadata",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(&core.AuthFailure{
			Code: core.ErrorCodeTokenMalformed,
			Err:  fmt.Errorf("error extracting token: %w", err),
		})
	}

	identity, err := i.core.CheckToken(ctx, token)
	if err != nil {
		i.logger.Info("call rejected",
			"code", core.ErrorCode(err),
			"method", method)
		return ctx, i.errorHandler(err)
	}

	if identity == nil {
		i.logger.Debug("no credentials provided, continuing without claims (credentials optional)",
			"method", method)
		return ctx, nil
	}

	return core.SetClaims(ctx, identity), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context carrying the verified identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
