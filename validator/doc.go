/*
Package validator verifies bearer tokens issued by the identity provider,
using the lestrrat-go/jwx v3 library for signature verification and claim
parsing.

# Verification Sequence

ValidateToken runs these steps in order and stops at the first failure:

 1. Pre-check size and segment count, then decode the unverified header.
    It must carry kid and alg (ErrMalformedToken).
 2. The header alg must equal the configured algorithm
    (ErrAlgorithmNotAllowed). This happens before any key lookup, and the
    header's alg is never used to choose how the signature is checked.
 3. Resolve the key for kid. Resolver errors are returned unchanged, so
    jwks.ErrNetwork, jwks.ErrUpstream, jwks.ErrMalformedResponse and
    jwks.ErrUnknownKey reach the caller as they are.
 4. Verify the signature with the configured algorithm
    (ErrInvalidSignature).
 5. iss must equal the issuer and aud must contain the audience
    (ErrClaimValidation, with ErrInvalidIssuer or ErrInvalidAudience).
 6. exp, nbf and iat are checked against the clock with the allowed skew
    (ErrTokenExpired, ErrTokenNotYetValid).
 7. sub must be present (ErrMissingSubject).

# Basic Usage

	import (
	    "github.com/batchprot/bearer-auth/jwks"
	    "github.com/batchprot/bearer-auth/validator"
	)

	fetcher, err := jwks.NewFetcher("https://auth.example.com/api/auth/jwks")
	if err != nil {
	    log.Fatal(err)
	}
	resolver, err := jwks.NewResolver(jwks.NewStore(), fetcher)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyResolver(resolver),
	    validator.WithIssuer("https://auth.example.com"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	identity, err := v.ValidateToken(ctx, tokenString)
	if err != nil {
	    // Token invalid
	}
	fmt.Println(identity.Subject)

The audience defaults to the issuer. Trailing slashes on either are
ignored.

# Error Handling

Every rejection other than a key resolution error is a *ValidationError
whose kind matches one of the sentinel errors:

	switch {
	case errors.Is(err, validator.ErrTokenExpired):
	    // ask the client to refresh
	case errors.Is(err, jwks.ErrNetwork):
	    // the provider is unreachable
	}

Callers that face untrusted clients should not echo these errors back;
the core package collapses them into a single opaque failure.

# Thread Safety

A Validator is immutable after New and safe for concurrent use.
*/
package validator
