package core

import (
	"context"
	"fmt"
)

type identityKey struct{}

// GetClaims returns the value SetClaims stored in ctx as a T.
//
// The error wraps ErrClaimsNotFound both when nothing was stored and when the
// stored value has another type:
//
//	identity, err := core.GetClaims[*validator.VerifiedIdentity](r.Context())
func GetClaims[T any](ctx context.Context) (T, error) {
	var zero T

	stored := ctx.Value(identityKey{})
	if stored == nil {
		return zero, ErrClaimsNotFound
	}
	claims, ok := stored.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stored value is %T", ErrClaimsNotFound, stored)
	}
	return claims, nil
}

// SetClaims returns a copy of ctx carrying claims. A later call replaces the
// earlier value.
func SetClaims(ctx context.Context, claims any) context.Context {
	return context.WithValue(ctx, identityKey{}, claims)
}

// HasClaims reports whether SetClaims stored a non-nil value in ctx.
func HasClaims(ctx context.Context) bool {
	return ctx.Value(identityKey{}) != nil
}
