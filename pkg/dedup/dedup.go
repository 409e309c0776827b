// SPDX-License-Identifier: Apache-2.0
// Package dedup suppresses duplicate action submissions within a single run.
package dedup

import (
	"fmt"
	"sync"
)

// Key identifies an action for deduplication. Equality is structural over
// the three fields, case- and whitespace-sensitive: callers normalize before
// constructing a Key if they want looser matching, the store never does.
type Key struct {
	Portal  string
	Project string
	Title   string
}

// String renders the key for logs.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%q", k.Portal, k.Project, k.Title)
}

// Store tracks dedup keys observed during the current run. It is created
// empty at run start and discarded at run end; nothing persists across runs.
// Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	seen map[Key]struct{}
}

// NewStore creates an empty per-run store.
func NewStore() *Store {
	return &Store{seen: make(map[Key]struct{})}
}

// TryReserve marks key as in-flight and returns true if it was not already
// present. A false return means an equivalent action is in flight or already
// succeeded this run.
func (s *Store) TryReserve(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Release compensates a reservation whose action failed permanently, so a
// later legitimately-distinct submission of the same key is not blocked.
// Reservations for succeeded actions are never released.
func (s *Store) Release(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}

// Len returns the number of reserved keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
