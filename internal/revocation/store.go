// Package revocation keeps the set of signed-out tokens that must be rejected before their
// natural expiry.
package revocation

import (
	"sync"
	"time"
)

// ExpiryFunc reports the embedded expiry of a raw token, if it can be read.
type ExpiryFunc func(token string) (time.Time, bool)

// Store is a concurrency-safe set of revoked token strings. All operations take the same
// lock, so a Revoke that returns is observed by every IsRevoked that starts after it.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]time.Time
	expiryOf ExpiryFunc
}

// NewStore returns an empty store. expiryOf may be nil, in which case entries are never
// aged out by Sweep.
func NewStore(expiryOf ExpiryFunc) *Store {
	return &Store{
		entries:  make(map[string]time.Time),
		expiryOf: expiryOf,
	}
}

// Revoke adds token to the set and reports whether this call inserted it. Revoking a token
// twice is a no-op that returns false.
func (s *Store) Revoke(token string) bool {
	var exp time.Time
	if s.expiryOf != nil {
		if t, ok := s.expiryOf(token); ok {
			exp = t
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[token]; ok {
		return false
	}
	s.entries[token] = exp
	return true
}

// IsRevoked reports whether token has been revoked.
func (s *Store) IsRevoked(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[token]
	return ok
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]time.Time)
}

// Len returns the number of revoked tokens currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes entries whose embedded expiry is at or before now and returns how many were
// removed. Entries with an unknown expiry are kept.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for tok, exp := range s.entries {
		if exp.IsZero() || exp.After(now) {
			continue
		}
		delete(s.entries, tok)
		removed++
	}
	return removed
}
