package jwks

import (
	"errors"
	"fmt"
)

// Sentinel errors for key retrieval. Match them with errors.Is.
var (
	// ErrNetwork is returned when the provider could not be reached,
	// including timeouts and cancellation.
	ErrNetwork = errors.New("jwks: network error")

	// ErrUpstream is returned when the provider answered with a non-success status.
	ErrUpstream = errors.New("jwks: upstream error")

	// ErrMalformedResponse is returned when the provider's response is not a key set.
	ErrMalformedResponse = errors.New("jwks: malformed response")

	// ErrUnknownKey is returned when no key with the requested id exists even
	// after a fresh fetch.
	ErrUnknownKey = errors.New("jwks: unknown key")
)

// FetchError describes a failed key set retrieval. Kind is one of
// ErrNetwork, ErrUpstream or ErrMalformedResponse.
type FetchError struct {
	Kind       error
	URL        string
	StatusCode int // set for ErrUpstream
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Kind.Error()
	if e.URL != "" {
		msg += " fetching " + e.URL
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is allows the error to be compared with its kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// UnknownKeyError reports a key id that is not in the provider's key set.
type UnknownKeyError struct {
	KeyID string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownKey, e.KeyID)
}

func (e *UnknownKeyError) Is(target error) bool {
	return target == ErrUnknownKey
}
