package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/batchprot/bearer-auth/jwks"
)

// Signature algorithms
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

// Only public-key algorithms: keys come from a published key set.
var allowedSigningAlgorithms = map[SignatureAlgorithm]jwa.SignatureAlgorithm{
	EdDSA: jwa.EdDSA(),
	RS256: jwa.RS256(),
	RS384: jwa.RS384(),
	RS512: jwa.RS512(),
	ES256: jwa.ES256(),
	ES384: jwa.ES384(),
	ES512: jwa.ES512(),
	PS256: jwa.PS256(),
	PS384: jwa.PS384(),
	PS512: jwa.PS512(),
}

// ParseAlgorithm returns the SignatureAlgorithm with the given name.
func ParseAlgorithm(name string) (SignatureAlgorithm, error) {
	alg := SignatureAlgorithm(name)
	if _, ok := allowedSigningAlgorithms[alg]; !ok {
		return "", fmt.Errorf("unsupported signature algorithm: %s", name)
	}
	return alg, nil
}

// KeyResolver finds the public key for a key id. *jwks.Resolver implements it.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (jwks.SigningKey, error)
}

// Validator verifies bearer tokens against keys from a KeyResolver.
type Validator struct {
	resolver         KeyResolver        // Required.
	issuer           string             // Required.
	audience         string             // Optional, defaults to issuer.
	algorithm        SignatureAlgorithm // Optional, defaults to EdDSA.
	allowedClockSkew time.Duration      // Optional.
	now              func() time.Time   // Optional.
}

// New sets up a new Validator.
//
// Required options:
//   - WithKeyResolver: where verification keys come from
//   - WithIssuer: the expected iss claim
//
// Optional options:
//   - WithAudience: the expected aud value (default: the issuer)
//   - WithAlgorithm: the only accepted algorithm (default: EdDSA)
//   - WithAllowedClockSkew: tolerance for exp, nbf and iat (default: 0)
//   - WithClock: time source (default: time.Now)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		algorithm: EdDSA,
		now:       time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.resolver == nil {
		return nil, errors.New("key resolver is required (use WithKeyResolver)")
	}
	if v.issuer == "" {
		return nil, errors.New("issuer is required (use WithIssuer)")
	}
	if v.audience == "" {
		v.audience = v.issuer
	}

	return v, nil
}

// Issuer returns the expected issuer.
func (v *Validator) Issuer() string {
	return v.issuer
}

// Audience returns the expected audience.
func (v *Validator) Audience() string {
	return v.audience
}

// ValidateToken verifies the token's signature and claims and returns the
// authenticated subject.
//
// The header alg must equal the configured algorithm; it is checked before
// any key lookup and never used to choose how the signature is verified.
// Errors from the KeyResolver are returned unchanged. Every other failure is
// a *ValidationError.
func (v *Validator) ValidateToken(ctx context.Context, token string) (*VerifiedIdentity, error) {
	header, err := ParseHeader(token)
	if err != nil {
		return nil, err
	}

	if header.Algorithm != string(v.algorithm) {
		return nil, newValidationError(
			ErrAlgorithmNotAllowed,
			fmt.Sprintf("expected %q signing algorithm but token specified %q", v.algorithm, header.Algorithm),
			nil,
		)
	}

	key, err := v.resolver.Resolve(ctx, header.KeyID)
	if err != nil {
		return nil, err
	}
	if key.Algorithm != "" && key.Algorithm != string(v.algorithm) {
		return nil, newValidationError(
			ErrAlgorithmNotAllowed,
			fmt.Sprintf("key %q is declared for %q, not %q", key.KeyID, key.Algorithm, v.algorithm),
			nil,
		)
	}

	if err := v.verifySignature(token, key); err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, newValidationError(ErrMalformedToken, "failed to parse claims", err)
	}

	if err := v.validateClaims(parsed); err != nil {
		return nil, err
	}

	subject, _ := parsed.Subject()
	if subject == "" {
		return nil, newValidationError(ErrMissingSubject, "", nil)
	}

	return &VerifiedIdentity{Subject: subject}, nil
}

func (v *Validator) verifySignature(token string, key jwks.SigningKey) error {
	material, err := key.Material()
	if err != nil {
		return newValidationError(ErrInvalidSignature, fmt.Sprintf("unusable key %q", key.KeyID), err)
	}

	alg := allowedSigningAlgorithms[v.algorithm]
	if _, err := jws.Verify([]byte(token), jws.WithKey(alg, material)); err != nil {
		return newValidationError(ErrInvalidSignature, "", err)
	}
	return nil
}

func (v *Validator) validateClaims(token jwt.Token) error {
	issuer, _ := token.Issuer()
	if issuer != v.issuer {
		return newValidationError(ErrClaimValidation, fmt.Sprintf("iss %q", issuer), ErrInvalidIssuer)
	}

	audiences, _ := token.Audience()
	if !containsAudience(audiences, v.audience) {
		return newValidationError(ErrClaimValidation, fmt.Sprintf("aud %q", audiences), ErrInvalidAudience)
	}

	return validateTimesWithLeeway(token, v.now(), v.allowedClockSkew)
}

func validateTimesWithLeeway(token jwt.Token, now time.Time, leeway time.Duration) error {
	if exp, ok := token.Expiration(); ok && !now.Add(-leeway).Before(exp) {
		return newValidationError(ErrTokenExpired, "exp "+exp.UTC().Format(time.RFC3339), nil)
	}

	if nbf, ok := token.NotBefore(); ok && now.Add(leeway).Before(nbf) {
		return newValidationError(ErrTokenNotYetValid, "nbf "+nbf.UTC().Format(time.RFC3339), nil)
	}

	if iat, ok := token.IssuedAt(); ok && now.Add(leeway).Before(iat) {
		return newValidationError(ErrTokenNotYetValid, "iat "+iat.UTC().Format(time.RFC3339), nil)
	}

	return nil
}

func containsAudience(audiences []string, want string) bool {
	for _, aud := range audiences {
		if aud == want {
			return true
		}
	}
	return false
}

// normalizeURL trims trailing slashes from a configured URL. Token claims
// are compared to the result as they are.
func normalizeURL(s string) string {
	return strings.TrimRight(s, "/")
}
