package jwks

import (
	"sync/atomic"
	"time"
)

// Store holds the most recently fetched key set. It is safe for concurrent
// use: sets are immutable and swapped atomically, so a reader sees either
// the previous complete set or the new one.
type Store struct {
	current atomic.Pointer[KeySet]
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreClock sets the clock used for expiry checks.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the cached set if there is one and it has not expired.
// An expired set is reported as absent but left in place until the next
// Write replaces it.
func (s *Store) Read() (*KeySet, bool) {
	set := s.current.Load()
	if set == nil || set.Expired(s.now()) {
		return nil, false
	}
	return set, true
}

// Write replaces the cached set.
func (s *Store) Write(set *KeySet) {
	s.current.Store(set)
}
