package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/makaraya/movapp/internal/httpclient"
)

const (
	// DefaultBaseURL is the TMDb API v3 root.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	// DefaultLanguage is sent when a caller passes an empty language tag.
	DefaultLanguage = "en_US"

	maxErrorBody = 4 << 10
)

var (
	// ErrFetchFailed marks every failure to obtain a payload from the catalog:
	// non-2xx status, transport error or undecodable body.
	ErrFetchFailed = errors.New("catalog fetch failed")
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("page must be >= 1")
	// ErrInvalidMovieID is returned for movie ids that are not positive.
	ErrInvalidMovieID = errors.New("movie id must be positive")
)

// StatusError is returned when the catalog answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tmdb API error %d", e.StatusCode)
	}
	return fmt.Sprintf("tmdb API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrFetchFailed) match status errors.
func (e *StatusError) Unwrap() error { return ErrFetchFailed }

// Client is a TMDb API v3 client. It holds no mutable state and is safe for
// concurrent use.
type Client struct {
	baseURL  string
	language string
	http     *httpclient.Client
	logger   *slog.Logger
}

// New creates a TMDb client on top of an already configured transport.
// The transport is expected to carry the signer (see APIKeySigner, BearerSigner).
func New(baseURL, language string, transport *httpclient.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = DefaultLanguage
	}
	if transport == nil {
		transport = httpclient.New(httpclient.DefaultConfig(), logger)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		http:     transport,
		logger:   logger,
	}
}

// FetchTrending returns this week's trending entries (all media types).
func (c *Client) FetchTrending(ctx context.Context) ([]MovieRecord, error) {
	var resp listResponse
	if err := c.get(ctx, "/trending/all/week", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}
	return resp.Results, nil
}

// FetchPopular returns the popular movies list.
func (c *Client) FetchPopular(ctx context.Context) ([]MovieRecord, error) {
	var resp listResponse
	if err := c.get(ctx, "/movie/popular", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch popular: %w", err)
	}
	return resp.Results, nil
}

// FetchUpcoming returns one page of upcoming movies. An empty language falls
// back to the client default; page 0 means the first page.
func (c *Client) FetchUpcoming(ctx context.Context, language string, page int) ([]MovieRecord, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, fmt.Errorf("fetch upcoming: %w", ErrInvalidPage)
	}

	params := url.Values{
		"language": {c.lang(language)},
		"page":     {strconv.Itoa(page)},
	}

	var resp listResponse
	if err := c.get(ctx, "/movie/upcoming", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch upcoming page %d: %w", page, err)
	}
	return resp.Results, nil
}

// FetchDetails retrieves a single movie by catalog id.
func (c *Client) FetchDetails(ctx context.Context, movieID int, language string) (*MovieRecord, error) {
	if movieID <= 0 {
		return nil, fmt.Errorf("fetch details %d: %w", movieID, ErrInvalidMovieID)
	}

	var rec MovieRecord
	path := fmt.Sprintf("/movie/%d", movieID)
	if err := c.get(ctx, path, url.Values{"language": {c.lang(language)}}, &rec); err != nil {
		return nil, fmt.Errorf("fetch details %d: %w", movieID, err)
	}
	return &rec, nil
}

// SearchByTerm searches movies by free text. The term is sent as-is, even when empty.
func (c *Client) SearchByTerm(ctx context.Context, term, language string) ([]MovieRecord, error) {
	params := url.Values{
		"query":    {term},
		"language": {c.lang(language)},
	}

	var resp listResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	return resp.Results, nil
}

// Ping checks that the catalog is reachable and accepts the configured
// credentials, returning the round-trip latency.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var resp struct {
		Success bool `json:"success"`
	}
	err := c.get(ctx, "/authentication", nil, &resp)
	latency := time.Since(start)
	if err != nil {
		return latency, fmt.Errorf("ping: %w", err)
	}
	return latency, nil
}

func (c *Client) lang(language string) string {
	if language == "" {
		return c.language
	}
	return language
}

// get performs a GET request against the catalog and decodes the JSON response.
// Every failure it returns wraps ErrFetchFailed.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %w", ErrFetchFailed, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.StatusMessage != "" {
			statusErr.Message = apiErr.StatusMessage
		} else {
			statusErr.Message = strings.TrimSpace(string(body))
		}
		c.logger.Debug("catalog returned error status",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrFetchFailed, err)
	}
	return nil
}
