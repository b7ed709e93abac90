/*
Package jwks resolves token signing keys from an identity provider's
published JSON Web Key Set.

# Overview

Three pieces cooperate:
  - Store: holds the last fetched KeySet and its expiry. Pure in-memory state.
  - Fetcher: performs the HTTP GET of the key set. The only part doing I/O.
  - Resolver: finds a key by id, using the Store first and the Fetcher on a miss.

A KeySet expires DefaultTTL (60 minutes) after it was fetched. The Store is
an owned object: build one at startup and inject it into the Resolver.

# Basic Usage

	store := jwks.NewStore()

	fetcher, err := jwks.NewFetcher("https://auth.example.com/api/auth/jwks",
	    jwks.WithTTL(time.Hour),
	)
	if err != nil {
	    log.Fatal(err)
	}

	resolver, err := jwks.NewResolver(store, fetcher)
	if err != nil {
	    log.Fatal(err)
	}

	key, err := resolver.Resolve(ctx, kid)

# Key Rotation

When a token references a key id that is not in a fresh cached set, the
Resolver fetches once more before giving up. A provider that has just
published a new key is therefore picked up on the first token signed with
it, and an id that is still unknown after that fetch yields ErrUnknownKey.

# Errors

	switch {
	case errors.Is(err, jwks.ErrUnknownKey):
	    // token references a key the provider does not publish
	case errors.Is(err, jwks.ErrNetwork):
	    // provider unreachable, timed out, or caller gave up
	case errors.Is(err, jwks.ErrUpstream):
	    // provider returned a non-2xx status
	case errors.Is(err, jwks.ErrMalformedResponse):
	    // provider returned something that is not a key set
	}

# Concurrency

Store reads and writes are atomic swaps of immutable KeySets. Concurrent
misses share a single in-flight fetch. The fetch is detached from the
caller's context, so cancelling one caller never cancels the fetch that
other callers are waiting on; the result is still written to the Store.
*/
package jwks
