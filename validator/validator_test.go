package validator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	golangjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchprot/bearer-auth/internal/jwkstest"
	"github.com/batchprot/bearer-auth/jwks"
)

const testIssuer = "http://localhost:3000"

func signingKey(t *testing.T, kp *jwkstest.KeyPair) jwks.SigningKey {
	t.Helper()

	key, err := jwks.NewSigningKey(kp.PublicJWKJSON(t))
	require.NoError(t, err)
	return key
}

func newStubResolver(t *testing.T, pairs ...*jwkstest.KeyPair) *stubResolver {
	t.Helper()

	keys := make(map[string]jwks.SigningKey, len(pairs))
	for _, kp := range pairs {
		keys[kp.KeyID] = signingKey(t, kp)
	}
	return &stubResolver{keys: keys}
}

func newTestValidator(t *testing.T, resolver KeyResolver, opts ...Option) *Validator {
	t.Helper()

	opts = append([]Option{WithKeyResolver(resolver), WithIssuer(testIssuer)}, opts...)
	v, err := New(opts...)
	require.NoError(t, err)
	return v
}

// swapPayload keeps the header and signature of token but replaces its
// payload with the one from other.
func swapPayload(token, other string) string {
	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	return parts[0] + "." + otherParts[1] + "." + parts[2]
}

func TestValidator_ValidateToken(t *testing.T) {
	ctx := context.Background()
	kp1 := jwkstest.NewKeyPair(t, "kid-1")
	impostor := jwkstest.NewKeyPair(t, "kid-1")

	now := time.Now().Truncate(time.Second)
	claimsAt := func(mutate func(*jwkstest.Claims)) jwkstest.Claims {
		c := jwkstest.Claims{
			Issuer:   testIssuer,
			Subject:  "user-123",
			Audience: []string{testIssuer},
			IssuedAt: now.Add(-time.Minute),
			Expiry:   now.Add(time.Hour),
		}
		if mutate != nil {
			mutate(&c)
		}
		return c
	}

	testCases := []struct {
		name        string
		token       func(t *testing.T) string
		opts        []Option
		wantSubject string
		wantErr     error
		wantDetail  error
	}{
		{
			name:        "it returns the subject of a valid token",
			token:       func(t *testing.T) string { return kp1.Sign(t, claimsAt(nil)) },
			wantSubject: "user-123",
		},
		{
			name: "it rejects iss with a trailing slash",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) {
					c.Issuer = testIssuer + "///"
				}))
			},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidIssuer,
		},
		{
			name: "it rejects aud with a trailing slash",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) {
					c.Audience = []string{testIssuer + "//"}
				}))
			},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidAudience,
		},
		{
			name: "it accepts a token whose aud lists several audiences",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) {
					c.Audience = []string{"https://other.example.com", testIssuer}
				}))
			},
			wantSubject: "user-123",
		},
		{
			name: "it accepts a token without exp",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Expiry = time.Time{} }))
			},
			wantSubject: "user-123",
		},
		{
			name: "it fails when the payload was tampered with",
			token: func(t *testing.T) string {
				good := kp1.Sign(t, claimsAt(nil))
				evil := kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Subject = "admin" }))
				return swapPayload(good, evil)
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "it fails when signed by another key with the same kid",
			token:   func(t *testing.T) string { return impostor.Sign(t, claimsAt(nil)) },
			wantErr: ErrInvalidSignature,
		},
		{
			name: "it fails when the issuer does not match",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Issuer = "https://evil.example.com" }))
			},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidIssuer,
		},
		{
			name: "it fails when the issuer is missing",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Issuer = "" }))
			},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidIssuer,
		},
		{
			name: "it fails when the audience does not match",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Audience = []string{"https://other.example.com"} }))
			},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidAudience,
		},
		{
			name: "it fails when the audience is missing",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Audience = nil }))
			},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidAudience,
		},
		{
			name: "it checks the configured audience instead of the issuer",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(nil))
			},
			opts:       []Option{WithAudience("https://api.example.com")},
			wantErr:    ErrClaimValidation,
			wantDetail: ErrInvalidAudience,
		},
		{
			name: "it fails when the token has expired",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Expiry = now.Add(-time.Minute) }))
			},
			wantErr: ErrTokenExpired,
		},
		{
			name: "it fails when the token is not valid yet",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.NotBefore = now.Add(time.Minute) }))
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "it fails when the token was issued in the future",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.IssuedAt = now.Add(time.Minute) }))
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "it allows clock skew on nbf",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.NotBefore = now.Add(10 * time.Second) }))
			},
			opts:        []Option{WithAllowedClockSkew(time.Minute)},
			wantSubject: "user-123",
		},
		{
			name: "it fails when the subject is missing",
			token: func(t *testing.T) string {
				return kp1.Sign(t, claimsAt(func(c *jwkstest.Claims) { c.Subject = "" }))
			},
			wantErr: ErrMissingSubject,
		},
		{
			name: "it fails when the header has no kid",
			token: func(t *testing.T) string {
				return kp1.SignRaw(t, map[string]any{"alg": "EdDSA"}, map[string]any{"sub": "user-123"})
			},
			wantErr: ErrMalformedToken,
		},
		{
			name: "it fails when the header has no alg",
			token: func(t *testing.T) string {
				return kp1.SignRaw(t, map[string]any{"kid": "kid-1"}, map[string]any{"sub": "user-123"})
			},
			wantErr: ErrMalformedToken,
		},
		{
			name: "it fails when the payload is not JSON",
			token: func(t *testing.T) string {
				good := kp1.Sign(t, claimsAt(nil))
				parts := strings.Split(good, ".")
				return parts[0] + "." + encodeSegment("not json") + "." + parts[2]
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "it fails on garbage",
			token:   func(t *testing.T) string { return "not-a-jwt" },
			wantErr: ErrMalformedToken,
		},
		{
			name: "it fails when the header asks for a different algorithm",
			token: func(t *testing.T) string {
				return kp1.SignRaw(t,
					map[string]any{"alg": "RS256", "kid": "kid-1"},
					map[string]any{"iss": testIssuer, "aud": testIssuer, "sub": "user-123"},
				)
			},
			wantErr: ErrAlgorithmNotAllowed,
		},
		{
			name: "it fails when the header asks for none",
			token: func(t *testing.T) string {
				return encodeSegment(`{"alg":"none","kid":"kid-1"}`) + "." + encodeSegment(`{"sub":"user-123"}`) + "."
			},
			wantErr: ErrAlgorithmNotAllowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestValidator(t, newStubResolver(t, kp1), tc.opts...)

			identity, err := v.ValidateToken(ctx, tc.token(t))
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				if tc.wantDetail != nil {
					assert.ErrorIs(t, err, tc.wantDetail)
				}

				var validationErr *ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.Nil(t, identity)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantSubject, identity.Subject)
		})
	}
}

func TestValidator_ValidateToken_AlgorithmCheckedBeforeResolve(t *testing.T) {
	kp := jwkstest.NewKeyPair(t, "kid-1")
	resolver := newStubResolver(t, kp)
	v := newTestValidator(t, resolver)

	token := kp.SignRaw(t, map[string]any{"alg": "ES256", "kid": "kid-1"}, map[string]any{"sub": "user-123"})

	_, err := v.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrAlgorithmNotAllowed)
	assert.Zero(t, resolver.calls)
}

func TestValidator_ValidateToken_KeyDeclaresAnotherAlgorithm(t *testing.T) {
	kp := jwkstest.NewKeyPair(t, "kid-1")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(kp.PublicJWKJSON(t), &doc))
	doc["alg"] = "ES256"
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	key, err := jwks.NewSigningKey(raw)
	require.NoError(t, err)

	v := newTestValidator(t, &stubResolver{keys: map[string]jwks.SigningKey{"kid-1": key}})

	_, err = v.ValidateToken(context.Background(), kp.Sign(t, jwkstest.ValidClaims(testIssuer, "user-123")))
	assert.ErrorIs(t, err, ErrAlgorithmNotAllowed)
}

func TestValidator_ValidateToken_ResolverErrorsPassThrough(t *testing.T) {
	kp := jwkstest.NewKeyPair(t, "kid-1")
	token := kp.Sign(t, jwkstest.ValidClaims(testIssuer, "user-123"))

	t.Run("fetch error", func(t *testing.T) {
		fetchErr := &jwks.FetchError{Kind: jwks.ErrUpstream, StatusCode: 503}
		v := newTestValidator(t, &stubResolver{err: fetchErr})

		_, err := v.ValidateToken(context.Background(), token)
		assert.Same(t, fetchErr, err)
		assert.ErrorIs(t, err, jwks.ErrUpstream)

		var validationErr *ValidationError
		assert.False(t, errors.As(err, &validationErr))
	})

	t.Run("unknown key", func(t *testing.T) {
		v := newTestValidator(t, &stubResolver{})

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, jwks.ErrUnknownKey)
	})
}

func TestValidator_ValidateToken_TimeBoundaries(t *testing.T) {
	kp := jwkstest.NewKeyPair(t, "kid-1")
	issued := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	exp := issued.Add(time.Hour)
	token := kp.Sign(t, jwkstest.Claims{
		Issuer:   testIssuer,
		Subject:  "user-123",
		Audience: []string{testIssuer},
		IssuedAt: issued,
		Expiry:   exp,
	})

	for name, tc := range map[string]struct {
		now     time.Time
		skew    time.Duration
		wantErr error
	}{
		"at issue time":               {now: issued},
		"one second before expiry":    {now: exp.Add(-time.Second)},
		"exactly at expiry":           {now: exp, wantErr: ErrTokenExpired},
		"after expiry":                {now: exp.Add(time.Minute), wantErr: ErrTokenExpired},
		"after expiry within skew":    {now: exp.Add(10 * time.Second), skew: 30 * time.Second},
		"before issue time":           {now: issued.Add(-time.Second), wantErr: ErrTokenNotYetValid},
		"before issue time with skew": {now: issued.Add(-time.Second), skew: 5 * time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			v := newTestValidator(t, newStubResolver(t, kp),
				WithClock(func() time.Time { return tc.now }),
				WithAllowedClockSkew(tc.skew),
			)

			identity, err := v.ValidateToken(context.Background(), token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-123", identity.Subject)
		})
	}
}

func TestValidator_ValidateToken_Idempotent(t *testing.T) {
	kp := jwkstest.NewKeyPair(t, "kid-1")
	v := newTestValidator(t, newStubResolver(t, kp))
	token := kp.Sign(t, jwkstest.ValidClaims(testIssuer, "user-123"))

	first, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	second, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestValidator_ValidateToken_TamperedSignature(t *testing.T) {
	ctx := context.Background()
	kp := jwkstest.NewKeyPair(t, "kid-1")
	v := newTestValidator(t, newStubResolver(t, kp))
	token := kp.Sign(t, jwkstest.ValidClaims(testIssuer, "user-123"))

	_, err := v.ValidateToken(ctx, token)
	require.NoError(t, err)

	cut := strings.LastIndex(token, ".") + 1
	signingInput, encoded := token[:cut], token[cut:]
	sig, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	t.Run("decoded bits", func(t *testing.T) {
		for i := range sig {
			for bit := 0; bit < 8; bit++ {
				flipped := append([]byte(nil), sig...)
				flipped[i] ^= 1 << bit

				identity, err := v.ValidateToken(ctx, signingInput+base64.RawURLEncoding.EncodeToString(flipped))
				require.Errorf(t, err, "byte %d bit %d", i, bit)
				assert.Nil(t, identity)
			}
		}
	})

	t.Run("encoded bits", func(t *testing.T) {
		for i := range encoded {
			for bit := 0; bit < 8; bit++ {
				flipped := []byte(encoded)
				flipped[i] ^= 1 << bit

				identity, err := v.ValidateToken(ctx, signingInput+string(flipped))
				require.Errorf(t, err, "char %d bit %d", i, bit)
				assert.Nil(t, identity)
			}
		}
	})
}

func TestValidator_ValidateToken_InteropToken(t *testing.T) {
	kp := jwkstest.NewKeyPair(t, "kid-1")
	v := newTestValidator(t, newStubResolver(t, kp))

	token := golangjwt.NewWithClaims(golangjwt.SigningMethodEdDSA, golangjwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   "user-456",
		Audience:  golangjwt.ClaimStrings{testIssuer},
		IssuedAt:  golangjwt.NewNumericDate(time.Now().Add(-time.Minute)),
		ExpiresAt: golangjwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token.Header["kid"] = kp.KeyID

	signed, err := token.SignedString(kp.Private)
	require.NoError(t, err)

	identity, err := v.ValidateToken(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user-456", identity.Subject)
}

func TestValidator_WithJWKSResolver(t *testing.T) {
	ctx := context.Background()
	kp1 := jwkstest.NewKeyPair(t, "kid-1")
	server := jwkstest.NewServer(t, kp1)

	fetcher, err := jwks.NewFetcher(server.JWKSURL())
	require.NoError(t, err)
	resolver, err := jwks.NewResolver(jwks.NewStore(), fetcher)
	require.NoError(t, err)

	v := newTestValidator(t, resolver)
	token := kp1.Sign(t, jwkstest.ValidClaims(testIssuer, "user-123"))

	identity, err := v.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity.Subject)
	assert.Equal(t, 1, server.Requests())

	identity, err = v.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity.Subject)
	assert.Equal(t, 1, server.Requests(), "second verification should be served from cache")

	stranger := jwkstest.NewKeyPair(t, "kid-unknown")
	_, err = v.ValidateToken(ctx, stranger.Sign(t, jwkstest.ValidClaims(testIssuer, "user-123")))
	assert.ErrorIs(t, err, jwks.ErrUnknownKey)
	assert.Equal(t, 2, server.Requests())
}

func TestValidationError(t *testing.T) {
	err := newValidationError(ErrClaimValidation, `iss "x"`, ErrInvalidIssuer)

	assert.Equal(t, `claim validation failed: iss "x": invalid issuer`, err.Error())
	assert.ErrorIs(t, err, ErrClaimValidation)
	assert.ErrorIs(t, err, ErrInvalidIssuer)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	assert.Equal(t, "missing subject", newValidationError(ErrMissingSubject, "", nil).Error())
}
