package favorites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func strPtr(s string) *string { return &s }

// detailsRepository answers Details from a fixed set of movies.
type detailsRepository struct {
	catalog.Repository
	movies  map[int]normalize.Movie
	failure *catalog.Failure
}

func (r *detailsRepository) Details(_ context.Context, q catalog.DetailsQuery) catalog.Outcome[normalize.Movie] {
	if r.failure != nil {
		return catalog.Fail[normalize.Movie](r.failure.Kind, r.failure.Message)
	}
	m, ok := r.movies[q.MovieID]
	if !ok {
		return catalog.Fail[normalize.Movie](catalog.KindNetwork, "tmdb API error 404")
	}
	return catalog.Success(m)
}

func newRepo() *detailsRepository {
	return &detailsRepository{movies: map[int]normalize.Movie{
		603: {ID: 603, Title: strPtr("The Matrix")},
		604: {ID: 604, Title: strPtr("The Matrix Reloaded")},
	}}
}

// brokenStore fails every call.
type brokenStore struct{}

var errDown = errors.New("disk full")

func (brokenStore) Add(context.Context, string, normalize.Movie) error { return errDown }
func (brokenStore) Remove(context.Context, string, int) (bool, error) { return false, errDown }
func (brokenStore) Contains(context.Context, string, int) (bool, error) {
	return false, errDown
}
func (brokenStore) List(context.Context, string) ([]normalize.Movie, error) { return nil, errDown }

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if got, _ := s.List(ctx, "alice"); got == nil || len(got) != 0 {
		t.Fatalf("empty list = %#v, want non-nil empty", got)
	}

	s.Add(ctx, "alice", normalize.Movie{ID: 1, Title: strPtr("one")})
	s.Add(ctx, "alice", normalize.Movie{ID: 2})
	s.Add(ctx, "alice", normalize.Movie{ID: 1, Title: strPtr("one, refreshed")})
	s.Add(ctx, "bob", normalize.Movie{ID: 3})

	got, _ := s.List(ctx, "alice")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 || *got[0].Title != "one, refreshed" {
		t.Errorf("alice = %+v", got)
	}
	if ok, _ := s.Contains(ctx, "bob", 1); ok {
		t.Error("favorites leaked between users")
	}

	got[0].ID = 99
	if ok, _ := s.Contains(ctx, "alice", 1); !ok {
		t.Error("List must return a copy")
	}

	if removed, _ := s.Remove(ctx, "alice", 1); !removed {
		t.Error("Remove(1) = false, want true")
	}
	if removed, _ := s.Remove(ctx, "alice", 1); removed {
		t.Error("second Remove(1) = true, want false")
	}
	if got, _ := s.List(ctx, "alice"); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("after remove = %+v", got)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%4)
			s.Add(ctx, user, normalize.Movie{ID: i})
			s.Contains(ctx, user, i)
			s.List(ctx, user)
		}(i)
	}
	wg.Wait()

	total := 0
	for u := range 4 {
		got, _ := s.List(ctx, fmt.Sprintf("u%d", u))
		total += len(got)
	}
	if total != 20 {
		t.Errorf("stored %d favorites, want 20", total)
	}
}

func TestService_AddListRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepo(), NewMemoryStore(), discardLogger)

	m, err := svc.Add(ctx, "tg:1", catalog.DetailsQuery{MovieID: 603}).Result()
	if err != nil || m.ID != 603 {
		t.Fatalf("Add = %+v, %v", m, err)
	}
	if ok, _ := svc.IsFavorite(ctx, "tg:1", 603).Result(); !ok {
		t.Error("IsFavorite(603) = false after Add")
	}
	if ok, _ := svc.IsFavorite(ctx, "tg:2", 603).Result(); ok {
		t.Error("other user sees the favorite")
	}

	list, err := svc.List(ctx, "tg:1").Result()
	if err != nil || len(list) != 1 || *list[0].Title != "The Matrix" {
		t.Errorf("List = %+v, %v", list, err)
	}

	if removed, _ := svc.Remove(ctx, "tg:1", 603).Result(); !removed {
		t.Error("Remove = false, want true")
	}
	if removed, _ := svc.Remove(ctx, "tg:1", 603).Result(); removed {
		t.Error("second Remove = true, want false")
	}
}

func TestService_CatalogFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(newRepo(), store, discardLogger)

	out := svc.Add(ctx, "u", catalog.DetailsQuery{MovieID: 42})
	if out.OK() || out.Failure().Kind != catalog.KindNetwork {
		t.Fatalf("Add(unknown) = %+v", out.Failure())
	}
	if got, _ := store.List(ctx, "u"); len(got) != 0 {
		t.Errorf("failed add stored %+v", got)
	}
}

func TestService_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepo(), NewMemoryStore(), discardLogger)

	tests := []struct {
		name    string
		failure *catalog.Failure
	}{
		{"add_without_user", svc.Add(ctx, "", catalog.DetailsQuery{MovieID: 603}).Failure()},
		{"list_without_user", svc.List(ctx, "").Failure()},
		{"remove_zero_id", svc.Remove(ctx, "u", 0).Failure()},
		{"is_favorite_negative_id", svc.IsFavorite(ctx, "u", -5).Failure()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.failure == nil || tt.failure.Kind != catalog.KindInvalidInput {
				t.Errorf("failure = %+v, want invalid_input", tt.failure)
			}
		})
	}
}

func TestService_StorageFailure(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepo(), brokenStore{}, discardLogger)

	failures := map[string]*catalog.Failure{
		"add":         svc.Add(ctx, "u", catalog.DetailsQuery{MovieID: 603}).Failure(),
		"remove":      svc.Remove(ctx, "u", 603).Failure(),
		"is_favorite": svc.IsFavorite(ctx, "u", 603).Failure(),
		"list":        svc.List(ctx, "u").Failure(),
	}
	for op, f := range failures {
		if f == nil || f.Kind != catalog.KindStorage {
			t.Errorf("%s failure = %+v, want storage_error", op, f)
		}
	}
}
