package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
	"github.com/makaraya/movapp/internal/catalog/tmdb"
	"github.com/makaraya/movapp/internal/httpclient"
	"github.com/makaraya/movapp/internal/metrics"
)

func strPtr(s string) *string { return &s }

// fakeRepository returns canned outcomes and records the queries it saw.
type fakeRepository struct {
	mu       sync.Mutex
	list     catalog.Outcome[[]normalize.Movie]
	detail   catalog.Outcome[normalize.Movie]
	upcoming []catalog.UpcomingQuery
	details  []catalog.DetailsQuery
	searches []catalog.SearchQuery
}

func newFakeRepository() *fakeRepository {
	movie := normalize.Movie{
		ID:          603,
		Title:       strPtr("The Matrix"),
		ReleaseDate: strPtr("03/30/1999"),
		PosterURL:   strPtr(normalize.ImageBaseURL + "/m.jpg"),
		VoteAverage: 8.2,
	}
	return &fakeRepository{
		list:   catalog.Success([]normalize.Movie{movie}),
		detail: catalog.Success(movie),
	}
}

func (f *fakeRepository) Trending(context.Context) catalog.Outcome[[]normalize.Movie] {
	return f.list
}

func (f *fakeRepository) Popular(context.Context) catalog.Outcome[[]normalize.Movie] {
	return f.list
}

func (f *fakeRepository) Upcoming(_ context.Context, q catalog.UpcomingQuery) catalog.Outcome[[]normalize.Movie] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upcoming = append(f.upcoming, q)
	return f.list
}

func (f *fakeRepository) Details(_ context.Context, q catalog.DetailsQuery) catalog.Outcome[normalize.Movie] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, q)
	return f.detail
}

func (f *fakeRepository) Search(_ context.Context, q catalog.SearchQuery) catalog.Outcome[[]normalize.Movie] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	return f.list
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, srv *Server, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestListRoutes(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{}, newFakeRepository(), nil, discardLogger())
	for _, path := range []string{
		"/v1/movies/trending",
		"/v1/movies/popular",
		"/v1/movies/upcoming",
		"/v1/search?query=matrix",
	} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, srv, path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			var body listResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Results) != 1 || *body.Results[0].Title != "The Matrix" {
				t.Errorf("results = %+v", body.Results)
			}
		})
	}
}

func TestEmptyListEncodesAsArray(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	repo.list = catalog.Success([]normalize.Movie{})
	srv := NewServer(Config{}, repo, nil, discardLogger())

	rec := serve(t, srv, "/v1/movies/popular")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"results":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestQueryParameters(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	srv := NewServer(Config{}, repo, nil, discardLogger())

	serve(t, srv, "/v1/movies/upcoming?language=fr_FR&page=3")
	serve(t, srv, "/v1/movie/603?language=de_DE")
	serve(t, srv, "/v1/search?query=blade+runner&language=it_IT")

	if want := (catalog.UpcomingQuery{Language: "fr_FR", Page: 3}); repo.upcoming[0] != want {
		t.Errorf("upcoming query = %+v, want %+v", repo.upcoming[0], want)
	}
	if want := (catalog.DetailsQuery{MovieID: 603, Language: "de_DE"}); repo.details[0] != want {
		t.Errorf("details query = %+v, want %+v", repo.details[0], want)
	}
	if want := (catalog.SearchQuery{Term: "blade runner", Language: "it_IT"}); repo.searches[0] != want {
		t.Errorf("search query = %+v, want %+v", repo.searches[0], want)
	}
}

func TestDetails(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{}, newFakeRepository(), nil, discardLogger())
	rec := serve(t, srv, "/v1/movie/603")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body movieResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Movie.ID != 603 || *body.Movie.ReleaseDate != "03/30/1999" {
		t.Errorf("movie = %+v", body.Movie)
	}
}

func TestFailureStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind catalog.Kind
		want int
	}{
		{catalog.KindNetwork, http.StatusBadGateway},
		{catalog.KindMalformedDate, http.StatusUnprocessableEntity},
		{catalog.KindInvalidInput, http.StatusBadRequest},
		{catalog.KindStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			repo := newFakeRepository()
			repo.list = catalog.Fail[[]normalize.Movie](tt.kind, "boom")
			repo.detail = catalog.Fail[normalize.Movie](tt.kind, "boom")
			srv := NewServer(Config{}, repo, nil, discardLogger())

			for _, path := range []string{"/v1/movies/trending", "/v1/movie/1"} {
				rec := serve(t, srv, path)
				if rec.Code != tt.want {
					t.Errorf("%s: status = %d, want %d", path, rec.Code, tt.want)
				}
				var body errorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Error.Kind != string(tt.kind) || body.Error.Message != "boom" {
					t.Errorf("%s: error = %+v", path, body.Error)
				}
			}
		})
	}
}

func TestBadParameters(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	srv := NewServer(Config{}, repo, nil, discardLogger())

	for _, path := range []string{"/v1/movies/upcoming?page=two", "/v1/movie/abc"} {
		rec := serve(t, srv, path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"kind":"invalid_input"`) {
			t.Errorf("%s: body = %s", path, rec.Body)
		}
	}
	if len(repo.upcoming) != 0 || len(repo.details) != 0 {
		t.Error("repository should not be called for unparseable parameters")
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{}, newFakeRepository(), nil, discardLogger())
	if rec := serve(t, srv, "/v1/nothing"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/movies/trending", http.NoBody)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{}, newFakeRepository(), nil, discardLogger())

	rec := serve(t, srv, "/health", requestIDHeader, "abc-123")
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("echoed id = %q", got)
	}

	rec = serve(t, srv, "/health")
	if got := rec.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("generated id = %q, want uuid", got)
	}

	rec = serve(t, srv, "/v1/nowhere", requestIDHeader, "err-42")
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.RequestID != "err-42" {
		t.Errorf("error body request_id = %q, want err-42", body.Error.RequestID)
	}
}

func TestCatalogTimeoutHidesAPIKey(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(300 * time.Millisecond):
		}
	}))
	defer upstream.Close()

	transport := httpclient.New(httpclient.Config{MaxRetries: 1, Timeout: 50 * time.Millisecond},
		discardLogger(), httpclient.WithSigner(tmdb.APIKeySigner("SECRET-KEY-123")))
	client := tmdb.New(upstream.URL, tmdb.DefaultLanguage, transport, discardLogger())
	repo := catalog.NewNetworkRepository(client, discardLogger())
	srv := NewServer(Config{}, repo, nil, discardLogger())

	rec := serve(t, srv, "/v1/movies/popular")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "SECRET-KEY-123") {
		t.Errorf("response leaks the API key: %s", rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "network_error") {
		t.Errorf("body = %s, want network_error", rec.Body)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{RateLimit: 0.001, RateBurst: 2}, newFakeRepository(), nil, discardLogger())

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(t, srv, "/v1/movies/popular").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/v1/movies/popular", http.NoBody)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestClientLimiter_Sweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(clientIdleAfter + time.Second)
	l.allow("10.0.0.2")
	l.sweep()

	if _, ok := l.clients["10.0.0.1"]; ok {
		t.Error("idle client should be evicted")
	}
	if _, ok := l.clients["10.0.0.2"]; !ok {
		t.Error("active client should be kept")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	repo := metrics.InstrumentRepository(newFakeRepository(), m)
	srv := NewServer(Config{}, repo, m, discardLogger())

	serve(t, srv, "/v1/movies/trending")
	rec := serve(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`movapp_http_requests_total{method="GET",route="/v1/movies/trending",status="200"} 1`,
		`movapp_catalog_queries_total{op="trending",outcome="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_StartAndStop(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{Port: 0, RateLimit: 10, RateBurst: 10}, newFakeRepository(), nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready within timeout")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr())) //nolint:noctx // test request
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := srv.Start(ctx); err == nil {
		t.Error("expected error on second Start")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("server returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop within timeout")
	}
}

func TestServer_AddrBeforeStart(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{}, newFakeRepository(), nil, nil)
	if addr := srv.Addr(); addr != "" {
		t.Errorf("expected empty addr before start, got %q", addr)
	}
}
