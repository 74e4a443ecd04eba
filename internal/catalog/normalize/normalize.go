// Package normalize turns raw catalog records into display-ready movies.
// Everything here is pure: no I/O, no shared state.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/makaraya/movapp/internal/catalog/tmdb"
)

const (
	// ImageBaseURL is prefixed to every relative poster path.
	ImageBaseURL = "https://image.tmdb.org/t/p/original"

	sourceDateLayout  = "2006-01-02"
	displayDateLayout = "01/02/2006"
)

// ErrMalformedDate is wrapped by every DateError.
var ErrMalformedDate = errors.New("malformed release date")

// DateError reports a non-empty release date that is not YYYY-MM-DD.
type DateError struct {
	MovieID int
	Value   string
	Err     error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("movie %d: %s %q", e.MovieID, ErrMalformedDate, e.Value)
}

// Unwrap exposes both the sentinel and the underlying parse error.
func (e *DateError) Unwrap() []error { return []error{ErrMalformedDate, e.Err} }

// Movie is a normalized catalog entry. Optional fields stay nil when the
// source omitted them.
type Movie struct {
	ID          int          `json:"id"`
	Title       *string      `json:"title"`
	Overview    *string      `json:"overview"`
	ReleaseDate *string      `json:"release_date"`
	PosterURL   *string      `json:"poster_path"`
	VoteAverage float64      `json:"vote_average"`
	VoteCount   int          `json:"vote_count"`
	Genres      []tmdb.Genre `json:"genres"`
}

// Complete reports whether the movie may appear in a list result.
func (m Movie) Complete() bool {
	return m.Title != nil && m.PosterURL != nil
}

// Detail normalizes a single record. It never drops the record; the only
// failure is a malformed release date.
func Detail(rec tmdb.MovieRecord) (Movie, error) {
	date, err := ReleaseDate(rec.ReleaseDate)
	if err != nil {
		return Movie{}, &DateError{MovieID: rec.ID, Value: *rec.ReleaseDate, Err: err}
	}

	m := Movie{
		ID:          rec.ID,
		Title:       cloneString(rec.Title),
		Overview:    cloneString(rec.Overview),
		ReleaseDate: date,
		PosterURL:   PosterURL(rec.PosterPath),
		VoteAverage: rec.VoteAverage,
		VoteCount:   rec.VoteCount,
		Genres:      make([]tmdb.Genre, len(rec.Genres)),
	}
	copy(m.Genres, rec.Genres)
	return m, nil
}

// List normalizes records and keeps only complete movies, preserving order.
// The first malformed date aborts the whole list.
func List(recs []tmdb.MovieRecord) ([]Movie, error) {
	out := make([]Movie, 0, len(recs))
	for _, rec := range recs {
		m, err := Detail(rec)
		if err != nil {
			return nil, err
		}
		if m.Complete() {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListLenient behaves like List but drops records with malformed dates
// instead of failing. The dropped records' errors are returned for logging.
func ListLenient(recs []tmdb.MovieRecord) ([]Movie, []error) {
	out := make([]Movie, 0, len(recs))
	var skipped []error
	for _, rec := range recs {
		m, err := Detail(rec)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if m.Complete() {
			out = append(out, m)
		}
	}
	return out, skipped
}

// ReleaseDate reformats YYYY-MM-DD to MM/DD/YYYY. Absent or empty input
// yields nil without attempting a parse.
func ReleaseDate(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(sourceDateLayout, *raw)
	if err != nil {
		return nil, err
	}
	s := t.Format(displayDateLayout)
	return &s, nil
}

// PosterURL joins ImageBaseURL and a relative poster path. A nil path stays nil.
func PosterURL(path *string) *string {
	if path == nil {
		return nil
	}
	s := ImageBaseURL + *path
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
