package validator

import (
	"encoding/json"
)

// TokenHeader is the unverified protected header of a compact JWS.
type TokenHeader struct {
	KeyID     string `json:"kid"`
	Algorithm string `json:"alg"`
	Type      string `json:"typ,omitempty"`
}

// ParseHeader decodes the header of a compact JWS without verifying
// anything. Both kid and alg must be present, and every segment must be
// canonical base64url.
func ParseHeader(token string) (TokenHeader, error) {
	if err := validateTokenFormat(token); err != nil {
		return TokenHeader{}, err
	}

	segments, err := decodeSegments(token)
	if err != nil {
		return TokenHeader{}, err
	}

	var header TokenHeader
	if err := json.Unmarshal(segments[0], &header); err != nil {
		return TokenHeader{}, newValidationError(ErrMalformedToken, "failed to unmarshal header", err)
	}
	if header.KeyID == "" {
		return TokenHeader{}, newValidationError(ErrMalformedToken, "header is missing kid", nil)
	}
	if header.Algorithm == "" {
		return TokenHeader{}, newValidationError(ErrMalformedToken, "header is missing alg", nil)
	}
	return header, nil
}
