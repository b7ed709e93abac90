// Package jwkstest provides Ed25519 key pairs, token minting and an
// in-process JWKS server for tests.
package jwkstest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/require"
)

// JWKSPath is the path the provider publishes its key set at.
const JWKSPath = "/api/auth/jwks"

// KeyPair is an Ed25519 signing key with its key id.
type KeyPair struct {
	KeyID   string
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// NewKeyPair generates a fresh Ed25519 key pair.
func NewKeyPair(t testing.TB, kid string) *KeyPair {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &KeyPair{KeyID: kid, Private: priv, Public: pub}
}

// PublicJWK returns the public half as a JWK tagged with kid and alg.
func (k *KeyPair) PublicJWK(t testing.TB) jwk.Key {
	t.Helper()

	key, err := jwk.Import(k.Public)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, k.KeyID))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.EdDSA()))
	return key
}

// PublicJWKJSON returns the public JWK document.
func (k *KeyPair) PublicJWKJSON(t testing.TB) []byte {
	t.Helper()

	b, err := json.Marshal(k.PublicJWK(t))
	require.NoError(t, err)
	return b
}

// Claims are the registered claims put into minted tokens. Zero times are
// omitted.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	Expiry    time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	Extra     map[string]any
}

// ValidClaims returns claims for issuer/audience that are valid for an hour.
func ValidClaims(issuer, subject string) Claims {
	now := time.Now()
	return Claims{
		Issuer:   issuer,
		Subject:  subject,
		Audience: []string{issuer},
		IssuedAt: now.Add(-time.Minute),
		Expiry:   now.Add(time.Hour),
	}
}

// Sign mints a compact EdDSA JWT carrying c, with this pair's kid in the
// protected header.
func (k *KeyPair) Sign(t testing.TB, c Claims) string {
	t.Helper()

	token := jwt.New()
	if c.Issuer != "" {
		require.NoError(t, token.Set(jwt.IssuerKey, c.Issuer))
	}
	if c.Subject != "" {
		require.NoError(t, token.Set(jwt.SubjectKey, c.Subject))
	}
	if len(c.Audience) > 0 {
		require.NoError(t, token.Set(jwt.AudienceKey, c.Audience))
	}
	if !c.Expiry.IsZero() {
		require.NoError(t, token.Set(jwt.ExpirationKey, c.Expiry))
	}
	if !c.NotBefore.IsZero() {
		require.NoError(t, token.Set(jwt.NotBeforeKey, c.NotBefore))
	}
	if !c.IssuedAt.IsZero() {
		require.NoError(t, token.Set(jwt.IssuedAtKey, c.IssuedAt))
	}
	for name, v := range c.Extra {
		require.NoError(t, token.Set(name, v))
	}

	priv, err := jwk.Import(k.Private)
	require.NoError(t, err)

	headers := jws.NewHeaders()
	require.NoError(t, headers.Set(jws.KeyIDKey, k.KeyID))
	require.NoError(t, headers.Set(jws.TypeKey, "JWT"))

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.EdDSA(), priv, jws.WithProtectedHeaders(headers)))
	require.NoError(t, err)
	return string(signed)
}

// SignRaw builds a compact JWS by hand from arbitrary header and payload
// objects and signs it with Ed25519, whatever the header says. It is used
// to produce tokens with missing or hostile header fields.
func (k *KeyPair) SignRaw(t testing.TB, header, payload map[string]any) string {
	t.Helper()

	h, err := json.Marshal(header)
	require.NoError(t, err)
	p, err := json.Marshal(payload)
	require.NoError(t, err)

	signingInput := base64.RawURLEncoding.EncodeToString(h) + "." + base64.RawURLEncoding.EncodeToString(p)
	sig := ed25519.Sign(k.Private, []byte(signingInput))
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Server is an httptest server publishing a key set at JWKSPath. The set,
// the status code and the raw body can be changed while it runs.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	docs   [][]byte
	status int
	body   []byte
	gate   chan struct{}

	requests atomic.Int32
}

// NewServer starts a JWKS server publishing the given key pairs. It is
// closed when the test ends.
func NewServer(t testing.TB, keys ...*KeyPair) *Server {
	t.Helper()

	s := &Server{status: http.StatusOK}
	s.SetKeys(t, keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// JWKSURL is the full URL of the published key set.
func (s *Server) JWKSURL() string {
	return s.URL + JWKSPath
}

// SetKeys replaces the published keys.
func (s *Server) SetKeys(t testing.TB, keys ...*KeyPair) {
	t.Helper()

	docs := make([][]byte, 0, len(keys))
	for _, k := range keys {
		docs = append(docs, k.PublicJWKJSON(t))
	}
	s.SetDocuments(docs...)
}

// SetDocuments publishes raw JWK documents as they are.
func (s *Server) SetDocuments(docs ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = docs
	s.body = nil
}

// SetStatus makes the server answer with code (and an error body when
// code is not 200).
func (s *Server) SetStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

// SetBody makes the server answer with body verbatim.
func (s *Server) SetBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = []byte(body)
}

// Hold makes every following request block until the returned release
// function is called.
func (s *Server) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns how many key set requests were served.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != JWKSPath {
		http.NotFound(w, r)
		return
	}
	s.requests.Add(1)

	s.mu.Lock()
	gate := s.gate
	status := s.status
	body := s.body
	docs := s.docs
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
		return
	}
	if body != nil {
		_, _ = w.Write(body)
		return
	}

	keys := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		keys[i] = d
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}
