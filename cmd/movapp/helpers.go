package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/makaraya/movapp/internal/cache"
	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/tmdb"
	"github.com/makaraya/movapp/internal/config"
	"github.com/makaraya/movapp/internal/httpclient"
	"github.com/makaraya/movapp/internal/metrics"
)

// Lipgloss styles used across commands.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	styleTitle   = lipgloss.NewStyle().Bold(true)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			MarginBottom(1)
)

// loadConfig loads and validates the configuration file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// buildClient wires the signed, retrying transport and the TMDb client.
func buildClient(cfg *config.Config, logger *slog.Logger) (*tmdb.Client, error) {
	signer, err := tmdb.NewSigner(cfg.TMDb.Auth, cfg.TMDb.APIKey)
	if err != nil {
		return nil, fmt.Errorf("configure tmdb auth: %w", err)
	}

	transport := httpclient.New(httpclient.Config{
		MaxRetries: cfg.TMDb.MaxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    cfg.TMDb.Timeout,
		RateLimit:  cfg.TMDb.RateLimit,
	}, logger, httpclient.WithSigner(signer))

	client := tmdb.New(cfg.TMDb.BaseURL, cfg.TMDb.Language, transport, logger)
	logger.Debug("TMDb client initialized",
		slog.String("url", sanitizeURL(cfg.TMDb.BaseURL)),
		slog.String("auth", cfg.TMDb.Auth),
	)
	return client, nil
}

// buildRepository wires the catalog client and repository from
// configuration. m may be nil; the cache wraps the outermost layer so hits
// are not counted as catalog queries.
func buildRepository(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (catalog.Repository, error) {
	client, err := buildClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	var opts []catalog.Option
	if cfg.TMDb.LenientDates {
		opts = append(opts, catalog.WithLenientDates())
	}

	var repo catalog.Repository = catalog.NewNetworkRepository(client, logger, opts...)
	if m != nil {
		repo = metrics.InstrumentRepository(repo, m)
	}
	if cfg.Cache.TTL > 0 {
		repo = cache.NewRepository(repo, cfg.Cache.TTL, cache.WithDefaultLanguage(cfg.TMDb.Language))
		logger.Debug("response cache enabled", slog.Duration("ttl", cfg.Cache.TTL))
	}
	return repo, nil
}

// sanitizeURL strips credentials, query params, and fragment from a URL for safe logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return "<redacted>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
