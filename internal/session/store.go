// Package session holds per-chat conversational state in memory.
//
// A Store maps a chat identifier to a typed value (a checkout draft or an
// admin dialog). Entries are created on first access and evicted once they
// have been idle for longer than the configured TTL, using the same
// opportunistic sweep the HTTP rate limiter uses for its buckets.
//
// Notes:
//   - The store is process-local. Drafts are ephemeral by definition and do
//     not survive a restart.
//   - Per-chat ordering is provided by the bot dispatcher; the store only
//     guarantees that individual operations are atomic.
package session

import (
	"sync"
	"time"
)

type entry[T any] struct {
	val      T
	lastSeen time.Time
}

// Store is a concurrency-safe, TTL-bounded map from chat ID to T.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[int64]*entry[T]

	ttl      time.Duration
	cleanupN uint64
	sweepAt  uint64
	now      func() time.Time
}

// New returns a Store whose entries expire after ttl of inactivity.
// A ttl of zero keeps entries until Clear is called.
func New[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		entries: make(map[int64]*entry[T]),
		ttl:     ttl,
		sweepAt: 1000,
		now:     time.Now,
	}
}

// lookup returns the live entry for id, dropping it first if it has expired.
// Callers must hold s.mu.
func (s *Store[T]) lookup(id int64, now time.Time) (*entry[T], bool) {
	s.cleanupN++
	if s.ttl > 0 && s.cleanupN >= s.sweepAt {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) >= s.ttl {
				delete(s.entries, k)
			}
		}
		s.cleanupN = 0
	}

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && now.Sub(e.lastSeen) >= s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	return e, true
}

// Get returns a copy of the value for id, or the zero value when absent or
// expired. The second result reports whether a live entry existed.
func (s *Store[T]) Get(id int64) (T, bool) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.lookup(id, now); ok {
		e.lastSeen = now
		return e.val, true
	}
	var zero T
	return zero, false
}

// Update applies fn to the value for id, creating a zero value first if
// needed, and returns the result.
func (s *Store[T]) Update(id int64, fn func(*T)) T {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(id, now)
	if !ok {
		e = &entry[T]{}
		s.entries[id] = e
	}
	fn(&e.val)
	e.lastSeen = now
	return e.val
}

// Set replaces the value for id.
func (s *Store[T]) Set(id int64, v T) {
	s.Update(id, func(p *T) { *p = v })
}

// Clear removes the entry for id.
func (s *Store[T]) Clear(id int64) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
