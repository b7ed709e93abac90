package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeyResolver sets where verification keys come from.
// This is a required option.
//
// For JWKS-based validation, pass a *jwks.Resolver.
func WithKeyResolver(r KeyResolver) Option {
	return func(v *Validator) error {
		if r == nil {
			return errors.New("key resolver cannot be nil")
		}
		v.resolver = r
		return nil
	}
}

// WithIssuer sets the expected issuer claim (iss).
// This is a required option.
//
// Trailing slashes are trimmed from issuerURL. The token's iss must equal
// the trimmed value exactly.
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		issuer := normalizeURL(issuerURL)
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuer); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		v.issuer = issuer
		return nil
	}
}

// WithAudience sets the expected audience. The token's aud must contain it.
// If not set, the issuer is used, which is what the provider puts in aud.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		audience = normalizeURL(audience)
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audience = audience
		return nil
	}
}

// WithAlgorithm sets the only signature algorithm tokens may use.
// If not set, EdDSA is used.
func WithAlgorithm(algorithm SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if _, ok := allowedSigningAlgorithms[algorithm]; !ok {
			return fmt.Errorf("unsupported signature algorithm: %s", algorithm)
		}
		v.algorithm = algorithm
		return nil
	}
}

// WithAllowedClockSkew sets the allowed clock skew for time-based claims.
//
// This allows for some tolerance when validating exp, nbf, and iat claims
// to account for clock differences between systems. If not set, the default
// is 0 (no clock skew allowed).
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// WithClock sets the time source used for exp, nbf and iat.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
