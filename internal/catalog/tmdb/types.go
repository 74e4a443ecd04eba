package tmdb

import "encoding/json"

// MovieRecord is a movie as the catalog service returns it. Optional fields
// are pointers so that an absent value can be told apart from an empty one.
type MovieRecord struct {
	ID          int     `json:"id"`
	Title       *string `json:"title,omitempty"`
	Overview    *string `json:"overview,omitempty"`
	ReleaseDate *string `json:"release_date,omitempty"`
	PosterPath  *string `json:"poster_path,omitempty"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Genres      []Genre `json:"genres"`
	// MediaType is only set on trending results ("movie", "tv", "person").
	MediaType string `json:"media_type,omitempty"`
}

// Genre represents a movie genre. Name is empty when the response only
// carried the genre id.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts both the detail shape ("genres": [{id, name}]) and
// the list shape ("genre_ids": [id]). "genres" wins when both are present.
func (m *MovieRecord) UnmarshalJSON(data []byte) error {
	type plain MovieRecord
	var raw struct {
		plain
		GenreIDs []int `json:"genre_ids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MovieRecord(raw.plain)
	if len(m.Genres) == 0 && len(raw.GenreIDs) > 0 {
		m.Genres = make([]Genre, len(raw.GenreIDs))
		for i, id := range raw.GenreIDs {
			m.Genres[i] = Genre{ID: id}
		}
	}
	return nil
}

// listResponse is the TMDb paginated list response shared by the trending,
// popular, upcoming and search endpoints.
type listResponse struct {
	Page         int           `json:"page"`
	Results      []MovieRecord `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// errorResponse is the body TMDb sends alongside non-2xx statuses.
type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
