// Package cache provides an in-memory TTL cache and a catalog.Repository
// decorator built on it. The catalog core never caches; presentation
// collaborators opt in by wrapping their repository.
package cache

import (
	"sync"
	"time"
)

// sweepEvery is the number of writes between sweeps of expired entries.
const sweepEvery = 100

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Store is a concurrency-safe map whose entries expire after a fixed TTL.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	writes  int
	now     func() time.Time
}

// NewStore creates a store whose entries live for ttl.
func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok && !now.After(e.expiresAt) {
		return e.data, true
	}

	var zero V
	if !ok {
		return zero, false
	}

	// Expired: remove lazily, re-checking under the write lock since a
	// concurrent Set may have refreshed the entry.
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, exists := s.entries[key]; exists {
		if s.now().After(e.expiresAt) {
			delete(s.entries, key)
			return zero, false
		}
		return e.data, true
	}
	return zero, false
}

// Set stores value under key.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.writes++
	if s.writes%sweepEvery == 0 {
		for k, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, k)
			}
		}
	}

	s.entries[key] = entry[V]{
		data:      value,
		expiresAt: now.Add(s.ttl),
	}
}

// Len returns the number of stored entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
