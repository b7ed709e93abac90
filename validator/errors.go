package validator

import "errors"

// Sentinel errors describing why a token was rejected. Every error returned
// by ValidateToken that is not a key resolution error is a *ValidationError
// matching exactly one of them.
var (
	// ErrMalformedToken is returned when the token is not a compact JWS with
	// a decodable header carrying kid and alg, or its claims cannot be read.
	ErrMalformedToken = errors.New("malformed token")

	// ErrAlgorithmNotAllowed is returned when the token header or the
	// resolved key names an algorithm other than the configured one.
	ErrAlgorithmNotAllowed = errors.New("algorithm not allowed")

	// ErrInvalidSignature is returned when the signature does not verify
	// against the resolved key.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrClaimValidation is returned when iss or aud do not match.
	ErrClaimValidation = errors.New("claim validation failed")

	// ErrTokenExpired is returned when exp has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotYetValid is returned when nbf or iat are in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")

	// ErrMissingSubject is returned when the verified token has no sub.
	ErrMissingSubject = errors.New("missing subject")
)

// Details carried by ErrClaimValidation errors.
var (
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
)

// ValidationError is a token rejection. Kind is one of the sentinel errors
// above; Details is the underlying cause, if any.
type ValidationError struct {
	Kind    error
	Message string
	Details error
}

func newValidationError(kind error, message string, details error) *ValidationError {
	return &ValidationError{Kind: kind, Message: message, Details: details}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != nil {
		msg += ": " + e.Details.Error()
	}
	return msg
}

// Is allows the error to be compared with its kind.
func (e *ValidationError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}
