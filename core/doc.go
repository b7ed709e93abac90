/*
Package core provides framework-agnostic bearer token checking that can be
used across different transport layers (HTTP, gRPC, etc.).

The Core type encapsulates the checking logic without dependencies on any
specific transport protocol. This allows the same code to be reused across
multiple frameworks and transports.

# Architecture

The core package implements the "Core" in the Core-Adapter pattern:

	┌──────────────────────────────────────────────┐
	│         Transport Adapters                   │
	│  (net/http, gin, echo, gRPC)                 │
	└────────────────┬─────────────────────────────┘
	                 │
	                 ▼
	┌──────────────────────────────────────────────┐
	│          Core Engine (THIS PACKAGE)          │
	│  • Credentials Optional Logic                │
	│  • Error collapse to "unauthenticated"       │
	│  • Logging, metrics and tracing              │
	└────────────────┬─────────────────────────────┘
	                 │
	                 ▼
	┌──────────────────────────────────────────────┐
	│          Validator                           │
	│  (signature and claims, keys from jwks)      │
	└──────────────────────────────────────────────┘

# Basic Usage

	c, err := core.New(
	    core.WithValidator(v),
	    core.WithLogger(logger),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := c.CheckToken(ctx, tokenString)
	if err != nil {
	    // reject with 401
	}
	identity := claims.(*validator.VerifiedIdentity)

# Error Handling

Every error returned by CheckToken is an *AuthFailure. Its message is
always "unauthenticated", so nothing about why a token was rejected can
leak to a client. The cause stays available for diagnostics:

	_, err := c.CheckToken(ctx, tokenString)
	if errors.Is(err, core.ErrUnauthenticated) {
	    code := core.ErrorCode(err) // e.g. "token_expired", "jwks_network_error"
	}

	errors.Is(err, validator.ErrTokenExpired) // true for an expired token
	errors.Is(err, jwks.ErrNetwork)           // true when the provider was unreachable

The code is logged at warn level, counted in auth_verifications_total and
set on the span as auth.error_code.

# Type-Safe Context Helpers

	ctx = core.SetClaims(ctx, identity)

	identity, err := core.GetClaims[*validator.VerifiedIdentity](ctx)
	if err != nil {
	    // Claims not found
	}

	if core.HasClaims(ctx) {
	    // Claims are present
	}
*/
package core
