package api

import (
	"net/http"
	"strings"

	"github.com/makaraya/movapp/internal/catalog"
)

// userHeader names the caller whose favorites a request touches. The API
// trusts it as given; authentication belongs to the proxy in front.
const userHeader = "X-User-ID"

type favoriteResponse struct {
	Favorite bool `json:"favorite"`
}

func (h *handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	writeList(w, r, h.favorites.List(r.Context(), user))
}

func (h *handlers) isFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}
	out := h.favorites.IsFavorite(r.Context(), user, id)
	if fav, ok := out.Value(); ok {
		writeJSON(w, http.StatusOK, favoriteResponse{Favorite: fav})
		return
	}
	writeFailure(w, r, out.Failure())
}

func (h *handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}
	out := h.favorites.Add(r.Context(), user, catalog.DetailsQuery{
		MovieID:  id,
		Language: r.URL.Query().Get("language"),
	})
	if m, ok := out.Value(); ok {
		writeJSON(w, http.StatusOK, movieResponse{Movie: m})
		return
	}
	writeFailure(w, r, out.Failure())
}

func (h *handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}
	out := h.favorites.Remove(r.Context(), user, id)
	removed, ok := out.Value()
	switch {
	case !ok:
		writeFailure(w, r, out.Failure())
	case !removed:
		writeError(w, r, http.StatusNotFound, "not_found", "the movie is not among the favorites")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := strings.TrimSpace(r.Header.Get(userHeader))
	if user == "" {
		writeFailure(w, r, &catalog.Failure{
			Kind:    catalog.KindInvalidInput,
			Message: userHeader + " header is required",
		})
		return "", false
	}
	return user, true
}
