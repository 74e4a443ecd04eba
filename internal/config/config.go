package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
)

// Defaults applied by setDefaults.
const (
	defaultTMDbBaseURL = "https://api.themoviedb.org/3"
	defaultLanguage    = "en_US"
	defaultTimeout     = 30 * time.Second
	defaultServerPort  = 8080
	defaultServerRate  = 10
	defaultServerBurst = 20
	defaultLogLevel    = "info"
	envPrefix          = "MOVAPP_"
	dotEnvFile         = ".env"
)

// Config represents the main application configuration
type Config struct {
	// Remote catalog service
	TMDb TMDbConfig `yaml:"tmdb"`

	// HTTP query API
	Server ServerConfig `yaml:"server"`

	// Optional response cache for collaborators
	Cache CacheConfig `yaml:"cache"`

	// Frontends
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`

	// Application settings
	App AppConfig `yaml:"app"`
}

// TMDbConfig holds catalog client configuration
type TMDbConfig struct {
	APIKey       string        `yaml:"api_key"`
	Auth         string        `yaml:"auth,omitempty"` // "query" (v3 api_key) or "bearer" (v4 token)
	BaseURL      string        `yaml:"base_url,omitempty"`
	Language     string        `yaml:"language,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxRetries   int           `yaml:"max_retries,omitempty"`
	RateLimit    float64       `yaml:"rate_limit,omitempty"` // requests/second, 0 = unlimited
	LenientDates bool          `yaml:"lenient_dates,omitempty"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit,omitempty"` // per-client requests/second, 0 = default
	RateBurst int     `yaml:"rate_burst,omitempty"`
	// DisableRateLimit turns the per-client limiter off regardless of RateLimit.
	DisableRateLimit bool `yaml:"disable_rate_limit,omitempty"`
}

// ClientRateLimit returns the per-client rate handed to the API server.
// 0 means unlimited.
func (s ServerConfig) ClientRateLimit() float64 {
	if s.DisableRateLimit {
		return 0
	}
	return s.RateLimit
}

// CacheConfig holds the optional response cache settings
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl,omitempty"` // 0 disables caching
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids,omitempty"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// Load loads configuration from a YAML file. A .env file next to it is read
// first; variables already set in the environment take precedence over it.
// MOVAPP_* environment variables then override file values.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), dotEnvFile)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads a dotenv file if it exists. godotenv.Load never
// overwrites variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables
func (c *Config) applyEnvOverrides() error {
	// TMDb
	if v := getenv("TMDB_API_KEY"); v != "" {
		c.TMDb.APIKey = v
	}
	if v := getenv("TMDB_AUTH"); v != "" {
		c.TMDb.Auth = v
	}
	if v := getenv("TMDB_BASE_URL"); v != "" {
		c.TMDb.BaseURL = v
	}
	if v := getenv("TMDB_LANGUAGE"); v != "" {
		c.TMDb.Language = v
	}
	if v := getenv("TMDB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTMDB_TIMEOUT: %w", envPrefix, err)
		}
		c.TMDb.Timeout = d
	}

	// Server
	if v := getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_PORT: %w", envPrefix, err)
		}
		c.Server.Port = port
	}

	// Telegram
	if v := getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		if c.Telegram == nil {
			c.Telegram = &TelegramConfig{}
		}
		c.Telegram.BotToken = v
	}

	// App
	if v := getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	return nil
}

func getenv(name string) string {
	return os.Getenv(envPrefix + name)
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.TMDb.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required")
	}
	switch c.TMDb.Auth {
	case "", "query", "bearer":
	default:
		return fmt.Errorf("tmdb.auth must be 'query' or 'bearer'")
	}
	if c.TMDb.BaseURL != "" {
		if err := validateURL(c.TMDb.BaseURL, "tmdb.base_url"); err != nil {
			return err
		}
	}
	if c.TMDb.Timeout < 0 {
		return fmt.Errorf("tmdb.timeout must not be negative")
	}
	if c.TMDb.MaxRetries < 0 {
		return fmt.Errorf("tmdb.max_retries must not be negative")
	}
	if c.TMDb.RateLimit < 0 {
		return fmt.Errorf("tmdb.rate_limit must not be negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	if c.Telegram != nil && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}

	switch strings.ToLower(c.App.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug, info, warn, error")
	}

	c.setDefaults()
	return nil
}

// setDefaults fills zero values with defaults.
func (c *Config) setDefaults() {
	if c.TMDb.Auth == "" {
		c.TMDb.Auth = "query"
	}
	if c.TMDb.BaseURL == "" {
		c.TMDb.BaseURL = defaultTMDbBaseURL
	}
	if c.TMDb.Language == "" {
		c.TMDb.Language = defaultLanguage
	}
	if c.TMDb.Timeout == 0 {
		c.TMDb.Timeout = defaultTimeout
	}
	if c.TMDb.MaxRetries == 0 {
		c.TMDb.MaxRetries = 1
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = defaultServerRate
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = defaultServerBurst
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
}

// validateURL checks that raw is an absolute http(s) URL with a host.
func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing host", field)
	}
	return nil
}
