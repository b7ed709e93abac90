package jwks

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// DefaultTTL is how long a fetched key set stays fresh.
const DefaultTTL = 60 * time.Minute

// SigningKey is one public key published by the provider. It is a value
// type: the key material is kept as the JWK document the provider sent and
// is never modified after the key set is built, so copies are safe to hand
// out while the cache is being replaced.
type SigningKey struct {
	KeyID     string
	Algorithm string // empty when the provider does not declare one
	KeyType   string

	raw []byte
}

// Material parses a fresh jwk.Key from the published JWK. Each call returns
// a new value so callers can never mutate cached state.
func (k SigningKey) Material() (jwk.Key, error) {
	if len(k.raw) == 0 {
		return nil, errors.New("signing key has no key material")
	}
	return jwk.ParseKey(k.raw)
}

// NewSigningKey builds a SigningKey from a single JWK document. It fails
// when the document is not a valid JWK or carries no "kid".
func NewSigningKey(doc []byte) (SigningKey, error) {
	var hdr struct {
		KeyID     string `json:"kid"`
		Algorithm string `json:"alg"`
		KeyType   string `json:"kty"`
	}
	if err := json.Unmarshal(doc, &hdr); err != nil {
		return SigningKey{}, err
	}
	if hdr.KeyID == "" {
		return SigningKey{}, errors.New(`jwk has no "kid"`)
	}
	if _, err := jwk.ParseKey(doc); err != nil {
		return SigningKey{}, err
	}

	raw := make([]byte, len(doc))
	copy(raw, doc)
	return SigningKey{
		KeyID:     hdr.KeyID,
		Algorithm: hdr.Algorithm,
		KeyType:   hdr.KeyType,
		raw:       raw,
	}, nil
}

// KeySet is an immutable snapshot of the provider's published keys.
type KeySet struct {
	FetchedAt time.Time
	ExpiresAt time.Time

	keys  []SigningKey
	index map[string]int
}

// NewKeySet builds a key set that expires ttl after fetchedAt. Key ids are
// unique within a set: the first key with a given id wins and later
// duplicates are dropped, as are keys without an id.
func NewKeySet(keys []SigningKey, fetchedAt time.Time, ttl time.Duration) *KeySet {
	s := &KeySet{
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
		keys:      make([]SigningKey, 0, len(keys)),
		index:     make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		if k.KeyID == "" {
			continue
		}
		if _, dup := s.index[k.KeyID]; dup {
			continue
		}
		s.index[k.KeyID] = len(s.keys)
		s.keys = append(s.keys, k)
	}
	return s
}

// Lookup returns a copy of the key with the given id.
func (s *KeySet) Lookup(kid string) (SigningKey, bool) {
	if s == nil {
		return SigningKey{}, false
	}
	i, ok := s.index[kid]
	if !ok {
		return SigningKey{}, false
	}
	return s.keys[i], true
}

// Expired reports whether the set is stale at now.
func (s *KeySet) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys in the order the provider published them.
func (s *KeySet) Keys() []SigningKey {
	if s == nil {
		return nil
	}
	out := make([]SigningKey, len(s.keys))
	copy(out, s.keys)
	return out
}

// KeyIDs returns the ids of all keys in publication order.
func (s *KeySet) KeyIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.keys))
	for i, k := range s.keys {
		ids[i] = k.KeyID
	}
	return ids
}

// parseKeySet decodes a {"keys": [...]} document. Individual keys that are
// not usable (no kid, unparseable JWK) are skipped and counted; a document
// without a "keys" array is an error.
func parseKeySet(data []byte, fetchedAt time.Time, ttl time.Duration) (*KeySet, int, error) {
	var doc struct {
		Keys *[]json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, err
	}
	if doc.Keys == nil {
		return nil, 0, errors.New(`document has no "keys" array`)
	}

	keys := make([]SigningKey, 0, len(*doc.Keys))
	skipped := 0
	for _, raw := range *doc.Keys {
		k, err := NewSigningKey(raw)
		if err != nil {
			skipped++
			continue
		}
		keys = append(keys, k)
	}
	return NewKeySet(keys, fetchedAt, ttl), skipped, nil
}
