package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
	"github.com/makaraya/movapp/internal/config"
	"github.com/makaraya/movapp/internal/favorites"
)

type handlers struct {
	repo      catalog.Repository
	favorites *favorites.Service
}

type listResponse struct {
	Results []normalize.Movie `json:"results"`
}

type movieResponse struct {
	Movie normalize.Movie `json:"movie"`
}

type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (h *handlers) trending(w http.ResponseWriter, r *http.Request) {
	writeList(w, r, h.repo.Trending(r.Context()))
}

func (h *handlers) popular(w http.ResponseWriter, r *http.Request) {
	writeList(w, r, h.repo.Popular(r.Context()))
}

func (h *handlers) upcoming(w http.ResponseWriter, r *http.Request) {
	q := catalog.UpcomingQuery{Language: r.URL.Query().Get("language")}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, r, &catalog.Failure{
				Kind:    catalog.KindInvalidInput,
				Message: fmt.Sprintf("page must be an integer, got %q", raw),
			})
			return
		}
		q.Page = page
	}
	writeList(w, r, h.repo.Upcoming(r.Context(), q))
}

func (h *handlers) details(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDParam(w, r)
	if !ok {
		return
	}

	out := h.repo.Details(r.Context(), catalog.DetailsQuery{
		MovieID:  id,
		Language: r.URL.Query().Get("language"),
	})
	if m, ok := out.Value(); ok {
		writeJSON(w, http.StatusOK, movieResponse{Movie: m})
		return
	}
	writeFailure(w, r, out.Failure())
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	writeList(w, r, h.repo.Search(r.Context(), catalog.SearchQuery{
		Term:     r.URL.Query().Get("query"),
		Language: r.URL.Query().Get("language"),
	}))
}

// movieIDParam parses the :id route parameter, writing a 400 on failure.
func movieIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeFailure(w, r, &catalog.Failure{
			Kind:    catalog.KindInvalidInput,
			Message: fmt.Sprintf("movie id must be an integer, got %q", raw),
		})
		return 0, false
	}
	return id, true
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not_found", "the requested resource could not be found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		fmt.Sprintf("the %s method is not supported for this resource", r.Method))
}

func writeList(w http.ResponseWriter, r *http.Request, out catalog.Outcome[[]normalize.Movie]) {
	if movies, ok := out.Value(); ok {
		writeJSON(w, http.StatusOK, listResponse{Results: movies})
		return
	}
	writeFailure(w, r, out.Failure())
}

func writeFailure(w http.ResponseWriter, r *http.Request, f *catalog.Failure) {
	status := statusFor(f.Kind)
	config.LoggerFromContext(r.Context()).Warn("catalog query failed",
		slog.String("kind", string(f.Kind)),
		slog.String("error", f.Message),
	)
	writeError(w, r, status, string(f.Kind), f.Message)
}

// statusFor maps a failure kind onto an HTTP status.
func statusFor(kind catalog.Kind) int {
	switch kind {
	case catalog.KindInvalidInput:
		return http.StatusBadRequest
	case catalog.KindMalformedDate:
		return http.StatusUnprocessableEntity
	case catalog.KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// writeError sends the JSON error envelope, tagged with the request id so
// clients can quote it when reporting problems.
func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Kind:      kind,
		Message:   message,
		RequestID: requestIDFrom(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"kind":"internal_error","message":"encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
