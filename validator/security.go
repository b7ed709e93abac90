package validator

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// maxTokenBytes bounds the raw token before anything is decoded.
	// Provider tokens are well under 4 KB.
	maxTokenBytes = 64 << 10

	// jwsDots is the number of dots in a compact JWS:
	// header.payload.signature.
	jwsDots = 2
)

// validateTokenFormat rejects inputs that cannot be a compact JWS before any
// base64 or JSON decoding happens, so oversized or heavily segmented tokens
// cost nothing to refuse.
func validateTokenFormat(token string) error {
	if token == "" {
		return newValidationError(ErrMalformedToken, "token is empty", nil)
	}
	if len(token) > maxTokenBytes {
		return newValidationError(ErrMalformedToken, fmt.Sprintf("token exceeds %d bytes", maxTokenBytes), nil)
	}
	if dots := strings.Count(token, "."); dots != jwsDots {
		return newValidationError(ErrMalformedToken, fmt.Sprintf("expected 3 segments, got %d", dots+1), nil)
	}
	if i := strings.IndexFunc(token, notSegmentChar); i >= 0 {
		return newValidationError(ErrMalformedToken, fmt.Sprintf("unexpected character at offset %d", i), nil)
	}
	return nil
}

// notSegmentChar reports runes outside the base64url alphabet and the dot.
func notSegmentChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == '-', r == '_', r == '.':
		return false
	}
	return true
}

var segmentNames = [3]string{"header", "payload", "signature"}

// strictEncoding rejects non-zero trailing bits, so every segment has exactly
// one accepted spelling.
var strictEncoding = base64.RawURLEncoding.Strict()

// decodeSegments decodes the three segments of a token that passed
// validateTokenFormat. Any non-canonical segment is malformed.
func decodeSegments(token string) ([3][]byte, error) {
	var decoded [3][]byte
	for i, segment := range strings.SplitN(token, ".", 3) {
		raw, err := strictEncoding.DecodeString(segment)
		if err != nil {
			return decoded, newValidationError(ErrMalformedToken, "failed to decode "+segmentNames[i], err)
		}
		decoded[i] = raw
	}
	return decoded, nil
}
