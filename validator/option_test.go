package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchprot/bearer-auth/jwks"
)

type stubResolver struct {
	keys  map[string]jwks.SigningKey
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, kid string) (jwks.SigningKey, error) {
	s.calls++
	if s.err != nil {
		return jwks.SigningKey{}, s.err
	}
	key, ok := s.keys[kid]
	if !ok {
		return jwks.SigningKey{}, &jwks.UnknownKeyError{KeyID: kid}
	}
	return key, nil
}

func TestNew(t *testing.T) {
	resolver := &stubResolver{}

	t.Run("defaults", func(t *testing.T) {
		v, err := New(WithKeyResolver(resolver), WithIssuer("https://auth.example.com/"))
		require.NoError(t, err)

		assert.Equal(t, "https://auth.example.com", v.Issuer())
		assert.Equal(t, "https://auth.example.com", v.Audience())
		assert.Equal(t, EdDSA, v.algorithm)
		assert.Zero(t, v.allowedClockSkew)
		assert.NotNil(t, v.now)
	})

	t.Run("explicit audience", func(t *testing.T) {
		v, err := New(
			WithKeyResolver(resolver),
			WithIssuer("https://auth.example.com"),
			WithAudience("https://api.example.com//"),
		)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com", v.Audience())
	})

	t.Run("missing key resolver", func(t *testing.T) {
		_, err := New(WithIssuer("https://auth.example.com"))
		assert.EqualError(t, err, "key resolver is required (use WithKeyResolver)")
	})

	t.Run("missing issuer", func(t *testing.T) {
		_, err := New(WithKeyResolver(resolver))
		assert.EqualError(t, err, "issuer is required (use WithIssuer)")
	})
}

func TestOptions(t *testing.T) {
	t.Run("WithKeyResolver", func(t *testing.T) {
		v := &Validator{}
		assert.NoError(t, WithKeyResolver(&stubResolver{})(v))
		assert.NotNil(t, v.resolver)

		assert.EqualError(t, WithKeyResolver(nil)(v), "key resolver cannot be nil")
	})

	t.Run("WithIssuer", func(t *testing.T) {
		v := &Validator{}
		assert.NoError(t, WithIssuer("http://localhost:3000/")(v))
		assert.Equal(t, "http://localhost:3000", v.issuer)

		assert.EqualError(t, WithIssuer("")(v), "issuer cannot be empty")
		assert.EqualError(t, WithIssuer("///")(v), "issuer cannot be empty")

		err := WithIssuer("http://[::1")(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid issuer URL")
	})

	t.Run("WithAudience", func(t *testing.T) {
		v := &Validator{}
		assert.NoError(t, WithAudience("my-api")(v))
		assert.Equal(t, "my-api", v.audience)

		assert.EqualError(t, WithAudience("")(v), "audience cannot be empty")
	})

	t.Run("WithAlgorithm", func(t *testing.T) {
		v := &Validator{}
		assert.NoError(t, WithAlgorithm(ES256)(v))
		assert.Equal(t, ES256, v.algorithm)

		assert.EqualError(t, WithAlgorithm("HS256")(v), "unsupported signature algorithm: HS256")
		assert.EqualError(t, WithAlgorithm("none")(v), "unsupported signature algorithm: none")
	})

	t.Run("WithAllowedClockSkew", func(t *testing.T) {
		v := &Validator{}
		assert.NoError(t, WithAllowedClockSkew(30*time.Second)(v))
		assert.Equal(t, 30*time.Second, v.allowedClockSkew)

		assert.EqualError(t, WithAllowedClockSkew(-time.Second)(v), "clock skew cannot be negative")
	})

	t.Run("WithClock", func(t *testing.T) {
		v := &Validator{}
		fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		assert.NoError(t, WithClock(func() time.Time { return fixed })(v))
		assert.Equal(t, fixed, v.now())

		assert.EqualError(t, WithClock(nil)(v), "clock cannot be nil")
	})

	t.Run("invalid option fails New", func(t *testing.T) {
		_, err := New(WithKeyResolver(&stubResolver{}), WithIssuer("https://a.example.com"), WithAlgorithm("HS256"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid option")
	})
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("EdDSA")
	require.NoError(t, err)
	assert.Equal(t, EdDSA, alg)

	_, err = ParseAlgorithm("HS512")
	assert.EqualError(t, err, "unsupported signature algorithm: HS512")
}
