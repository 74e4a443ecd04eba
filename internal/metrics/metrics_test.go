package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
)

// stubRepository succeeds on every query except Popular.
type stubRepository struct{}

func (stubRepository) Trending(context.Context) catalog.Outcome[[]normalize.Movie] {
	return catalog.Success([]normalize.Movie{})
}

func (stubRepository) Popular(context.Context) catalog.Outcome[[]normalize.Movie] {
	return catalog.Fail[[]normalize.Movie](catalog.KindNetwork, "down")
}

func (stubRepository) Upcoming(context.Context, catalog.UpcomingQuery) catalog.Outcome[[]normalize.Movie] {
	return catalog.Success([]normalize.Movie{})
}

func (stubRepository) Details(_ context.Context, q catalog.DetailsQuery) catalog.Outcome[normalize.Movie] {
	return catalog.Success(normalize.Movie{ID: q.MovieID})
}

func (stubRepository) Search(context.Context, catalog.SearchQuery) catalog.Outcome[[]normalize.Movie] {
	return catalog.Success([]normalize.Movie{})
}

func TestInstrumentRepository(t *testing.T) {
	m := New()
	repo := InstrumentRepository(stubRepository{}, m)
	ctx := context.Background()

	repo.Trending(ctx)
	repo.Trending(ctx)
	repo.Popular(ctx)
	if got := repo.Details(ctx, catalog.DetailsQuery{MovieID: 5}); !got.OK() {
		t.Fatal("decorator must pass the outcome through")
	}

	if got := testutil.ToFloat64(m.queries.WithLabelValues("trending", "success")); got != 2 {
		t.Errorf("trending success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.queries.WithLabelValues("popular", "network_error")); got != 1 {
		t.Errorf("popular network_error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queries.WithLabelValues("details", "success")); got != 1 {
		t.Errorf("details success = %v, want 1", got)
	}
}

func TestInstrumentRoute(t *testing.T) {
	m := New()
	h := m.InstrumentRoute("/v1/movies/:id", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/movies/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/movies/2", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/movies/:id", "502")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpInFlight); got != 0 {
		t.Errorf("in-flight = %v, want 0", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveQuery("search", nil, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `movapp_catalog_queries_total{op="search",outcome="success"} 1`) {
		t.Errorf("metrics output missing query counter:\n%s", body)
	}
}
