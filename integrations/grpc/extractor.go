package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"

	bearerauth "github.com/batchprot/bearer-auth"
)

// TokenExtractor extracts the bearer token from incoming gRPC metadata.
type TokenExtractor func(ctx context.Context) (string, error)

// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
var ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

// MetadataTokenExtractor extracts the token from the "authorization"
// metadata key in the "Bearer <token>" format. gRPC lowercases incoming
// metadata keys, so only the lowercase key is checked.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return bearerauth.ParseAuthorization(values[0])
	default:
		return "", ErrMultipleAuthHeaders
	}
}
