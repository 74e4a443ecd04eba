// Package api serves catalog queries as a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/favorites"
	"github.com/makaraya/movapp/internal/metrics"
)

// shutdownTimeout is the maximum time to wait for the HTTP server to shut down.
const shutdownTimeout = 5 * time.Second

// Config holds listener and rate limiting settings.
type Config struct {
	Port      int
	RateLimit float64 // per-client requests/second, 0 disables limiting
	RateBurst int
}

// Server is the HTTP front of a catalog.Repository.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	limiter    *clientLimiter
	listener   net.Listener
	mu         sync.RWMutex
	ready      chan struct{}
	started    atomic.Bool
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*handlers)

// WithFavorites serves the /v1/favorites routes backed by svc.
func WithFavorites(svc *favorites.Service) Option {
	return func(h *handlers) { h.favorites = svc }
}

// NewServer creates an API server. m may be nil, in which case no metrics
// are recorded and /metrics is not served.
func NewServer(cfg Config, repo catalog.Repository, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Server {
	if repo == nil {
		panic("api.NewServer: repository must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ready:  make(chan struct{}),
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	h := &handlers{repo: repo}
	for _, opt := range opts {
		opt(h)
	}
	router := httprouter.New()
	route := func(method, path string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if m != nil {
			handler = m.InstrumentRoute(path, handler)
		}
		router.Handler(method, path, handler)
	}
	route(http.MethodGet, "/v1/movies/trending", h.trending)
	route(http.MethodGet, "/v1/movies/popular", h.popular)
	route(http.MethodGet, "/v1/movies/upcoming", h.upcoming)
	route(http.MethodGet, "/v1/movie/:id", h.details)
	route(http.MethodGet, "/v1/search", h.search)
	if h.favorites != nil {
		route(http.MethodGet, "/v1/favorites", h.listFavorites)
		route(http.MethodGet, "/v1/favorites/:id", h.isFavorite)
		route(http.MethodPut, "/v1/favorites/:id", h.addFavorite)
		route(http.MethodDelete, "/v1/favorites/:id", h.removeFavorite)
	}
	router.HandlerFunc(http.MethodGet, "/health", healthHandler)
	if m != nil {
		router.Handler(http.MethodGet, "/metrics", m.Handler())
	}
	router.NotFound = http.HandlerFunc(notFound)
	router.MethodNotAllowed = http.HandlerFunc(methodNotAllowed)
	router.PanicHandler = s.recoverPanic

	s.handler = s.requestID(s.logRequests(s.rateLimit(router)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      45 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Ready returns a channel that is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listener address once the server has started.
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Start begins serving requests. It blocks until the server stops or an
// error occurs. The server shuts down gracefully when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("api server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("api server listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("api server started", slog.String("addr", ln.Addr().String()))

	if s.limiter != nil {
		go s.limiter.evictIdle(ctx, time.Minute)
	}

	serveDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-serveDone:
			return
		}
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:contextcheck // parent ctx is canceled; we need a fresh context for graceful shutdown
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("api server shutdown error", slog.String("error", err.Error()))
		}
	}()

	err = s.httpServer.Serve(ln)
	close(serveDone)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) recoverPanic(w http.ResponseWriter, r *http.Request, v any) {
	s.logger.Error("panic while serving request",
		slog.String("path", r.URL.Path),
		slog.Any("panic", v),
	)
	writeError(w, r, http.StatusInternalServerError, "internal_error", "the server encountered a problem")
}
