// Package endpoint derives the issuer identifier and the key set URL from
// the auth provider's base URL.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultJWKSPath is where the provider publishes its key set.
const DefaultJWKSPath = "/api/auth/jwks"

// ParseBaseURL parses an absolute http(s) base URL.
func ParseBaseURL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", baseURL)
	}
	return u, nil
}

// Issuer returns the expected iss claim for baseURL: the base URL without
// trailing slashes.
func Issuer(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

// JWKSURL joins jwksPath onto baseURL. An empty jwksPath means
// DefaultJWKSPath.
func JWKSURL(baseURL, jwksPath string) (string, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return "", err
	}
	if jwksPath == "" {
		jwksPath = DefaultJWKSPath
	}
	if strings.Contains(jwksPath, "?") {
		return "", errors.New("JWKS path must not contain a query")
	}

	u.Path = path.Join("/", u.Path, jwksPath)
	u.RawPath = ""
	return u.String(), nil
}
