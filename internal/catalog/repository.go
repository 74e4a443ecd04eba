// Package catalog exposes the movie catalog to presentation code. Every
// query resolves to exactly one Outcome.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/makaraya/movapp/internal/catalog/normalize"
	"github.com/makaraya/movapp/internal/catalog/tmdb"
)

// UpcomingQuery selects a page of upcoming movies. Zero values mean the
// client default language and the first page.
type UpcomingQuery struct {
	Language string
	Page     int
}

// DetailsQuery selects a single movie.
type DetailsQuery struct {
	MovieID  int
	Language string
}

// SearchQuery is a free-text movie search. An empty Term is sent unmodified.
type SearchQuery struct {
	Term     string
	Language string
}

// Repository is the query surface presentation code talks to.
type Repository interface {
	Trending(ctx context.Context) Outcome[[]normalize.Movie]
	Popular(ctx context.Context) Outcome[[]normalize.Movie]
	Upcoming(ctx context.Context, q UpcomingQuery) Outcome[[]normalize.Movie]
	Details(ctx context.Context, q DetailsQuery) Outcome[normalize.Movie]
	Search(ctx context.Context, q SearchQuery) Outcome[[]normalize.Movie]
}

// Source is the subset of the catalog client the repository needs.
type Source interface {
	FetchTrending(ctx context.Context) ([]tmdb.MovieRecord, error)
	FetchPopular(ctx context.Context) ([]tmdb.MovieRecord, error)
	FetchUpcoming(ctx context.Context, language string, page int) ([]tmdb.MovieRecord, error)
	FetchDetails(ctx context.Context, movieID int, language string) (*tmdb.MovieRecord, error)
	SearchByTerm(ctx context.Context, term, language string) ([]tmdb.MovieRecord, error)
}

var _ Source = (*tmdb.Client)(nil)

// Option configures a NetworkRepository.
type Option func(*NetworkRepository)

// WithLenientDates makes list queries drop records with malformed release
// dates instead of failing the whole query. Detail queries still fail.
func WithLenientDates() Option {
	return func(r *NetworkRepository) { r.lenientDates = true }
}

// NetworkRepository serves queries straight from the remote catalog. Each
// call performs exactly one Source call and keeps no state between calls.
type NetworkRepository struct {
	source       Source
	lenientDates bool
	logger       *slog.Logger
}

var _ Repository = (*NetworkRepository)(nil)

// NewNetworkRepository creates a repository backed by source.
func NewNetworkRepository(source Source, logger *slog.Logger, opts ...Option) *NetworkRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &NetworkRepository{source: source, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trending returns this week's trending movies.
func (r *NetworkRepository) Trending(ctx context.Context) Outcome[[]normalize.Movie] {
	recs, err := r.source.FetchTrending(ctx)
	return r.list("trending", recs, err)
}

// Popular returns the popular movies.
func (r *NetworkRepository) Popular(ctx context.Context) Outcome[[]normalize.Movie] {
	recs, err := r.source.FetchPopular(ctx)
	return r.list("popular", recs, err)
}

// Upcoming returns one page of upcoming movies.
func (r *NetworkRepository) Upcoming(ctx context.Context, q UpcomingQuery) Outcome[[]normalize.Movie] {
	recs, err := r.source.FetchUpcoming(ctx, q.Language, q.Page)
	return r.list("upcoming", recs, err)
}

// Search returns the movies matching a term. No match is a successful empty list.
func (r *NetworkRepository) Search(ctx context.Context, q SearchQuery) Outcome[[]normalize.Movie] {
	recs, err := r.source.SearchByTerm(ctx, q.Term, q.Language)
	return r.list("search", recs, err)
}

// Details returns a single movie. The completeness filter does not apply.
func (r *NetworkRepository) Details(ctx context.Context, q DetailsQuery) Outcome[normalize.Movie] {
	rec, err := r.source.FetchDetails(ctx, q.MovieID, q.Language)
	if err != nil {
		return fail[normalize.Movie](r.logger, "details", err)
	}
	if rec == nil {
		return Fail[normalize.Movie](KindNetwork, fmt.Sprintf("movie %d: empty response", q.MovieID))
	}

	m, err := normalize.Detail(*rec)
	if err != nil {
		return fail[normalize.Movie](r.logger, "details", err)
	}
	return Success(m)
}

func (r *NetworkRepository) list(op string, recs []tmdb.MovieRecord, err error) Outcome[[]normalize.Movie] {
	if err != nil {
		return fail[[]normalize.Movie](r.logger, op, err)
	}

	if r.lenientDates {
		movies, skipped := normalize.ListLenient(recs)
		for _, e := range skipped {
			r.logger.Warn("dropped movie with malformed release date",
				slog.String("op", op),
				slog.String("error", e.Error()),
			)
		}
		return Success(movies)
	}

	movies, err := normalize.List(recs)
	if err != nil {
		return fail[[]normalize.Movie](r.logger, op, err)
	}
	return Success(movies)
}

// fail classifies err into a failed outcome and logs it.
func fail[T any](logger *slog.Logger, op string, err error) Outcome[T] {
	kind := Classify(err)
	logger.Debug("catalog query failed",
		slog.String("op", op),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
	)
	return Fail[T](kind, err.Error())
}

// Classify maps an error from the client or normalizer onto a failure kind.
// Anything unrecognized is treated as a network error.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, normalize.ErrMalformedDate):
		return KindMalformedDate
	case errors.Is(err, tmdb.ErrInvalidPage), errors.Is(err, tmdb.ErrInvalidMovieID):
		return KindInvalidInput
	default:
		return KindNetwork
	}
}
