// Package httpclient is the outbound transport for read-only JSON APIs. It
// signs every attempt, shares one rate limiter between callers and retries
// safe requests when configured to.
package httpclient

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds retry, timeout and rate limit configuration.
type Config struct {
	// MaxRetries is the total number of attempts per request. 1 disables retries.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Timeout bounds a single attempt including the body read. 0 leaves only
	// the request context in control.
	Timeout time.Duration
	// RateLimit caps outgoing requests per second across all callers. 0 means unlimited.
	RateLimit float64
}

// DefaultConfig returns a single-attempt configuration with a 30s timeout.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 1,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// Signer attaches credentials to an outgoing request. It is called once per
// attempt, after the request is built and before it is sent.
type Signer interface {
	Sign(req *http.Request) error
}

// SignerFunc adapts an ordinary function to the Signer interface.
type SignerFunc func(req *http.Request) error

// Sign calls f(req).
func (f SignerFunc) Sign(req *http.Request) error { return f(req) }

// AttemptsError is returned when every attempt of a retried request failed
// at the transport level.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithSigner installs a request-signing hook applied to every attempt.
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithHTTPClient replaces the underlying http.Client (e.g. for custom transports in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client wraps http.Client with request signing, rate limiting and optional retries.
// It is safe for concurrent use and must not be mutated after construction.
type Client struct {
	http    *http.Client
	config  Config
	signer  Signer
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a new Client with a default http.Client.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	c := &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(math.Ceil(cfg.RateLimit)))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req. GET and HEAD requests are retried up to MaxRetries attempts
// on 429, 5xx gateway errors and transport failures; any other method is sent
// exactly once. When retries run out on a bad status the last response is
// returned as is, so the caller can decode the error body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	attempts := 1
	if isSafe(req.Method) {
		attempts = c.config.MaxRetries
	}

	var (
		lastErr   error
		retryHint time.Duration
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.pause(req, attempt, retryHint); err != nil {
				return nil, err
			}
		}

		resp, err := c.send(req)
		switch {
		case err != nil && req.Context().Err() != nil:
			return nil, req.Context().Err()
		case errors.Is(err, errNotSent):
			return nil, err
		case err != nil:
			lastErr, retryHint = err, 0
			continue
		case attempt == attempts || !retryableStatus(resp.StatusCode):
			return resp, nil
		}

		retryHint = c.retryAfter(resp)
		lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, redactURL(req))
		_ = resp.Body.Close()
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, &AttemptsError{Attempts: attempts, Err: lastErr}
}

// errNotSent marks failures that happened before the request left the process.
var errNotSent = errors.New("request not sent")

// send performs a single attempt: wait for the limiter, sign, then send.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %w", errNotSent, err)
		}
	}
	if c.signer != nil {
		if err := c.signer.Sign(req); err != nil {
			return nil, fmt.Errorf("%w: sign request: %w", errNotSent, err)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, redactError(err, req)
	}
	return resp, nil
}

// redactError strips the query string from the URL carried by transport
// errors, since signers may put credentials there.
func redactError(err error, req *http.Request) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redactURL(req)
	}
	return err
}

// pause sleeps before the given attempt, honouring a server hint when it asks
// for longer than the computed backoff.
func (c *Client) pause(req *http.Request, attempt int, hint time.Duration) error {
	delay := max(c.backoff(attempt), hint)
	if c.config.MaxDelay > 0 {
		delay = min(delay, c.config.MaxDelay)
	}

	c.logger.Debug("retrying request",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("url", redactURL(req)),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

// backoff returns the exponential delay before attempt (2, 3, ...) with up
// to 20% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.config.BaseDelay) * math.Pow(2, float64(attempt-2))
	if c.config.MaxDelay > 0 {
		delay = math.Min(delay, float64(c.config.MaxDelay))
	}
	jitter := delay * 0.2 * rand.Float64() // #nosec G404
	return time.Duration(delay + jitter)
}

// retryAfter reads a Retry-After header given either in seconds or as an
// HTTP date.
func (c *Client) retryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil {
		return time.Duration(max(seconds, 0)) * time.Second
	}
	if at, err := http.ParseTime(ra); err == nil {
		return max(at.Sub(c.now()), 0)
	}
	return 0
}

// redactURL returns the request URL without its query string, which may carry credentials.
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}

func isSafe(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
