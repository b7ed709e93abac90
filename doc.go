/*
Package bearerauth provides HTTP middleware that authenticates bearer tokens
issued by an external identity provider.

Tokens are verified against the provider's published JSON Web Key Set. The
key set is cached in memory for an hour and refreshed once when a token
names a key the cache does not know, so key rotation is picked up without a
restart. The middleware follows the Core-Adapter pattern, with this package
serving as the net/http adapter; the gin, echo and gRPC adapters live under
framework/ and integrations/.

# Quick Start

	import (
	    bearerauth "github.com/batchprot/bearer-auth"
	    "github.com/batchprot/bearer-auth/jwks"
	    "github.com/batchprot/bearer-auth/validator"
	)

	func main() {
	    fetcher, err := jwks.NewFetcher("http://localhost:3000/api/auth/jwks")
	    if err != nil {
	        log.Fatal(err)
	    }
	    resolver, err := jwks.NewResolver(jwks.NewStore(), fetcher)
	    if err != nil {
	        log.Fatal(err)
	    }

	    v, err := validator.New(
	        validator.WithKeyResolver(resolver),
	        validator.WithIssuer("http://localhost:3000"),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    middleware, err := bearerauth.New(bearerauth.WithValidator(v))
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/api/", middleware.CheckJWT(apiHandler))
	    http.ListenAndServe(":8000", nil)
	}

# Accessing the Identity

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    subject, ok := bearerauth.Subject(r.Context())
	    if !ok {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "hello %s", subject)
	}

GetClaims[*validator.VerifiedIdentity], MustGetClaims and HasClaims give
typed access to the whole identity.

# Failures

Every rejection, whether the token is missing, the Authorization header is
malformed, the token fails verification or the key set cannot be fetched,
gets the same response:

	HTTP/1.1 401 Unauthorized
	WWW-Authenticate: Bearer
	Content-Type: application/json

	{"detail":"Could not validate credentials"}

The reason is logged with a diagnostic code (see core.ErrorCode) and never
sent to the client. A custom ErrorHandler receives the same opaque error.

# Options

  - WithValidator (required)
  - WithCredentialsOptional: let requests without a token through
  - WithValidateOnOptions: skip OPTIONS requests when false
  - WithTokenExtractor: read the token from somewhere other than the
    Authorization header (CookieTokenExtractor, ParameterTokenExtractor,
    MultiTokenExtractor)
  - WithExclusionUrls: paths served without authentication
  - WithErrorHandler, WithLogger, WithMetrics, WithTracer
*/
package bearerauth
