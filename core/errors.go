package core

import (
	"context"
	"errors"

	"github.com/batchprot/bearer-auth/jwks"
	"github.com/batchprot/bearer-auth/validator"
)

// Sentinel errors.
var (
	// ErrUnauthenticated is matched by every error CheckToken returns.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrJWTMissing is returned when the JWT is missing from the request.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// Error codes. They are for logs, metrics and traces only and are never
// sent to the client.
const (
	ErrorCodeTokenMissing          = "token_missing"
	ErrorCodeTokenMalformed        = "token_malformed"
	ErrorCodeInvalidAlgorithm      = "invalid_algorithm"
	ErrorCodeInvalidSignature      = "invalid_signature"
	ErrorCodeInvalidClaims         = "invalid_claims"
	ErrorCodeTokenExpired          = "token_expired"
	ErrorCodeTokenNotYetValid      = "token_not_yet_valid"
	ErrorCodeMissingSubject        = "missing_subject"
	ErrorCodeJWKSNetworkError      = "jwks_network_error"
	ErrorCodeJWKSUpstreamError     = "jwks_upstream_error"
	ErrorCodeJWKSMalformedResponse = "jwks_malformed_response"
	ErrorCodeJWKSKeyNotFound       = "jwks_key_not_found"
	ErrorCodeInternal              = "internal_error"
)

// AuthFailure is the only error CheckToken returns. Its message is always
// "unauthenticated" whatever the cause, so it can be shown to a client as
// it is. Code and Unwrap expose the cause for diagnostics.
type AuthFailure struct {
	Code string
	Err  error
}

func newAuthFailure(err error) *AuthFailure {
	return &AuthFailure{Code: classify(err), Err: err}
}

// Error implements the error interface.
func (e *AuthFailure) Error() string {
	return ErrUnauthenticated.Error()
}

// Is allows the error to be compared with ErrUnauthenticated.
func (e *AuthFailure) Is(target error) bool {
	return target == ErrUnauthenticated
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AuthFailure) Unwrap() error {
	return e.Err
}

// ErrorCode returns the diagnostic code for err, or "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var failure *AuthFailure
	if errors.As(err, &failure) {
		return failure.Code
	}
	return classify(err)
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrJWTMissing, ErrorCodeTokenMissing},
	{validator.ErrMalformedToken, ErrorCodeTokenMalformed},
	{validator.ErrAlgorithmNotAllowed, ErrorCodeInvalidAlgorithm},
	{validator.ErrInvalidSignature, ErrorCodeInvalidSignature},
	{validator.ErrClaimValidation, ErrorCodeInvalidClaims},
	{validator.ErrTokenExpired, ErrorCodeTokenExpired},
	{validator.ErrTokenNotYetValid, ErrorCodeTokenNotYetValid},
	{validator.ErrMissingSubject, ErrorCodeMissingSubject},
	{jwks.ErrNetwork, ErrorCodeJWKSNetworkError},
	{jwks.ErrUpstream, ErrorCodeJWKSUpstreamError},
	{jwks.ErrMalformedResponse, ErrorCodeJWKSMalformedResponse},
	{jwks.ErrUnknownKey, ErrorCodeJWKSKeyNotFound},
	{context.Canceled, ErrorCodeJWKSNetworkError},
	{context.DeadlineExceeded, ErrorCodeJWKSNetworkError},
}

func classify(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ErrorCodeInternal
}
