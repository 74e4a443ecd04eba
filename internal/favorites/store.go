// Package favorites keeps per-user favorite movies next to the read-only
// catalog. Entries are snapshots of normalized movies taken when they were
// added.
package favorites

import (
	"context"
	"slices"
	"sync"

	"github.com/makaraya/movapp/internal/catalog/normalize"
)

// Store persists favorites per user. Users are opaque strings chosen by the
// front end ("tg:42", an HTTP header value, ...).
type Store interface {
	// Add stores m for user. Adding a movie twice refreshes the snapshot
	// and keeps its position.
	Add(ctx context.Context, user string, m normalize.Movie) error
	// Remove deletes movieID and reports whether it was present.
	Remove(ctx context.Context, user string, movieID int) (bool, error)
	Contains(ctx context.Context, user string, movieID int) (bool, error)
	// List returns favorites in the order they were added. Never nil.
	List(ctx context.Context, user string) ([]normalize.Movie, error)
}

// MemoryStore is an in-process Store. Its contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string][]normalize.Movie
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string][]normalize.Movie)}
}

func (s *MemoryStore) Add(_ context.Context, user string, m normalize.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	movies := s.users[user]
	if i := indexOf(movies, m.ID); i >= 0 {
		movies[i] = m
		return nil
	}
	s.users[user] = append(movies, m)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, user string, movieID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	movies := s.users[user]
	i := indexOf(movies, movieID)
	if i < 0 {
		return false, nil
	}
	movies = slices.Delete(movies, i, i+1)
	if len(movies) == 0 {
		delete(s.users, user)
	} else {
		s.users[user] = movies
	}
	return true, nil
}

func (s *MemoryStore) Contains(_ context.Context, user string, movieID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.users[user], movieID) >= 0, nil
}

func (s *MemoryStore) List(_ context.Context, user string) ([]normalize.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]normalize.Movie, len(s.users[user]))
	copy(out, s.users[user])
	return out, nil
}

func indexOf(movies []normalize.Movie, id int) int {
	return slices.IndexFunc(movies, func(m normalize.Movie) bool { return m.ID == id })
}
