package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
	"github.com/makaraya/movapp/internal/catalog/tmdb"
)

// Repository caches successful outcomes of the wrapped repository for a
// fixed TTL. Failures are never cached.
type Repository struct {
	next     catalog.Repository
	lists    *Store[[]normalize.Movie]
	details  *Store[normalize.Movie]
	language string
}

// Option configures a Repository.
type Option func(*Repository)

// WithDefaultLanguage tells the cache which language the catalog client uses
// for an empty language tag, so both spellings share one entry.
func WithDefaultLanguage(language string) Option {
	return func(r *Repository) {
		if language != "" {
			r.language = language
		}
	}
}

var _ catalog.Repository = (*Repository)(nil)

// NewRepository wraps next with a TTL cache.
func NewRepository(next catalog.Repository, ttl time.Duration, opts ...Option) *Repository {
	r := &Repository{
		next:     next,
		lists:    NewStore[[]normalize.Movie](ttl),
		details:  NewStore[normalize.Movie](ttl),
		language: tmdb.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trending returns cached trending movies or queries next.
func (r *Repository) Trending(ctx context.Context) catalog.Outcome[[]normalize.Movie] {
	return r.list("trending", func() catalog.Outcome[[]normalize.Movie] {
		return r.next.Trending(ctx)
	})
}

// Popular returns cached popular movies or queries next.
func (r *Repository) Popular(ctx context.Context) catalog.Outcome[[]normalize.Movie] {
	return r.list("popular", func() catalog.Outcome[[]normalize.Movie] {
		return r.next.Popular(ctx)
	})
}

// Upcoming returns a cached upcoming page or queries next.
func (r *Repository) Upcoming(ctx context.Context, q catalog.UpcomingQuery) catalog.Outcome[[]normalize.Movie] {
	page := q.Page
	if page == 0 {
		page = 1
	}
	key := fmt.Sprintf("upcoming:%s:%d", r.lang(q.Language), page)
	return r.list(key, func() catalog.Outcome[[]normalize.Movie] {
		return r.next.Upcoming(ctx, q)
	})
}

// Search returns cached search results or queries next.
func (r *Repository) Search(ctx context.Context, q catalog.SearchQuery) catalog.Outcome[[]normalize.Movie] {
	key := fmt.Sprintf("search:%s:%q", r.lang(q.Language), q.Term)
	return r.list(key, func() catalog.Outcome[[]normalize.Movie] {
		return r.next.Search(ctx, q)
	})
}

// Details returns a cached movie or queries next.
func (r *Repository) Details(ctx context.Context, q catalog.DetailsQuery) catalog.Outcome[normalize.Movie] {
	key := fmt.Sprintf("movie:%d:%s", q.MovieID, r.lang(q.Language))
	if m, ok := r.details.Get(key); ok {
		return catalog.Success(m)
	}
	out := r.next.Details(ctx, q)
	if m, ok := out.Value(); ok {
		r.details.Set(key, m)
	}
	return out
}

func (r *Repository) list(key string, fetch func() catalog.Outcome[[]normalize.Movie]) catalog.Outcome[[]normalize.Movie] {
	if movies, ok := r.lists.Get(key); ok {
		return catalog.Success(movies)
	}
	out := fetch()
	if movies, ok := out.Value(); ok {
		r.lists.Set(key, movies)
	}
	return out
}

func (r *Repository) lang(language string) string {
	if language == "" {
		return r.language
	}
	return language
}
