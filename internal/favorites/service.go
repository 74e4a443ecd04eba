package favorites

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
)

// Service combines the catalog and a Store. Every operation returns a
// catalog.Outcome so front ends render favorites like any other query.
type Service struct {
	repo   catalog.Repository
	store  Store
	logger *slog.Logger
}

// NewService creates a favorites service. Added movies are looked up in repo.
func NewService(repo catalog.Repository, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, logger: logger}
}

// Add fetches the movie from the catalog and stores it for user. A catalog
// failure is returned unchanged and nothing is stored.
func (s *Service) Add(ctx context.Context, user string, q catalog.DetailsQuery) catalog.Outcome[normalize.Movie] {
	if user == "" {
		return catalog.Fail[normalize.Movie](catalog.KindInvalidInput, "user is required")
	}
	out := s.repo.Details(ctx, q)
	m, ok := out.Value()
	if !ok {
		return out
	}
	if err := s.store.Add(ctx, user, m); err != nil {
		return storageFailure[normalize.Movie](s.logger, "add", err)
	}
	return out
}

// Remove deletes movieID from user's favorites. The value reports whether
// the movie was a favorite.
func (s *Service) Remove(ctx context.Context, user string, movieID int) catalog.Outcome[bool] {
	if f := validate(user, movieID); f != nil {
		return catalog.Fail[bool](f.Kind, f.Message)
	}
	removed, err := s.store.Remove(ctx, user, movieID)
	if err != nil {
		return storageFailure[bool](s.logger, "remove", err)
	}
	return catalog.Success(removed)
}

// IsFavorite reports whether movieID is among user's favorites.
func (s *Service) IsFavorite(ctx context.Context, user string, movieID int) catalog.Outcome[bool] {
	if f := validate(user, movieID); f != nil {
		return catalog.Fail[bool](f.Kind, f.Message)
	}
	ok, err := s.store.Contains(ctx, user, movieID)
	if err != nil {
		return storageFailure[bool](s.logger, "contains", err)
	}
	return catalog.Success(ok)
}

// List returns user's favorites, oldest first.
func (s *Service) List(ctx context.Context, user string) catalog.Outcome[[]normalize.Movie] {
	if user == "" {
		return catalog.Fail[[]normalize.Movie](catalog.KindInvalidInput, "user is required")
	}
	movies, err := s.store.List(ctx, user)
	if err != nil {
		return storageFailure[[]normalize.Movie](s.logger, "list", err)
	}
	if movies == nil {
		movies = []normalize.Movie{}
	}
	return catalog.Success(movies)
}

func validate(user string, movieID int) *catalog.Failure {
	switch {
	case user == "":
		return &catalog.Failure{Kind: catalog.KindInvalidInput, Message: "user is required"}
	case movieID <= 0:
		return &catalog.Failure{Kind: catalog.KindInvalidInput, Message: fmt.Sprintf("movie id must be positive, got %d", movieID)}
	}
	return nil
}

func storageFailure[T any](logger *slog.Logger, op string, err error) catalog.Outcome[T] {
	logger.Warn("favorites store failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return catalog.Fail[T](catalog.KindStorage, fmt.Sprintf("favorites %s: %v", op, err))
}
