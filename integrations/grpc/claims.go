package grpc

import (
	"context"

	"github.com/batchprot/bearer-auth/core"
	"github.com/batchprot/bearer-auth/validator"
)

// Identity returns the verified identity the interceptor stored in ctx.
//
// Example:
//
//	identity, ok := jwtgrpc.Identity(ctx)
//	if !ok {
//	    return nil, status.Error(codes.Internal, "missing identity")
//	}
//	log.Println(identity.Subject)
func Identity(ctx context.Context) (*validator.VerifiedIdentity, bool) {
	identity, err := core.GetClaims[*validator.VerifiedIdentity](ctx)
	if err != nil || identity == nil {
		return nil, false
	}
	return identity, true
}

// MustIdentity returns the verified identity or panics.
// Use only in handlers that are not excluded and not credentials-optional.
func MustIdentity(ctx context.Context) *validator.VerifiedIdentity {
	identity, ok := Identity(ctx)
	if !ok {
		panic(core.ErrClaimsNotFound)
	}
	return identity
}

// HasIdentity checks if a verified identity exists in the context.
func HasIdentity(ctx context.Context) bool {
	return core.HasClaims(ctx)
}
