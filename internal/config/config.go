// Package config loads runtime settings from FPL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KasraH/fpl-combos/pkg/coverage"
	"github.com/KasraH/fpl-combos/pkg/fetch"
	"github.com/KasraH/fpl-combos/pkg/fpl"
	"github.com/KasraH/fpl-combos/pkg/logging"
	"github.com/KasraH/fpl-combos/pkg/standings"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/caarlos0/env/v11"
)

// Config is the process configuration.
type Config struct {
	APIBaseURL     string        `env:"FPL_API_BASE_URL"     envDefault:"https://fantasy.premierleague.com/api"`
	SiteURL        string        `env:"FPL_SITE_URL"         envDefault:"https://fantasy.premierleague.com"`
	UserAgent      string        `env:"FPL_USER_AGENT"       envDefault:"fpl-combos/1.0"`
	RequestTimeout time.Duration `env:"FPL_REQUEST_TIMEOUT"  envDefault:"5s"`
	CatalogTimeout time.Duration `env:"FPL_CATALOG_TIMEOUT"  envDefault:"10s"`
	PagePause      time.Duration `env:"FPL_PAGE_PAUSE"       envDefault:"500ms"`

	CacheDir          string        `env:"FPL_CACHE_DIR"          envDefault:"fpl_cache"`
	CacheFreshness    time.Duration `env:"FPL_CACHE_FRESHNESS"    envDefault:"1h"`
	CoverageThreshold float64       `env:"FPL_COVERAGE_THRESHOLD" envDefault:"0.95"`
	AcceptStale       bool          `env:"FPL_ACCEPT_STALE"       envDefault:"true"`

	Profile string `env:"FPL_PROFILE" envDefault:"conservative"`

	// RedisURL enables the shared response cache and error budget when set.
	RedisURL string `env:"FPL_REDIS_URL"`

	StandingsCacheSize int           `env:"FPL_STANDINGS_CACHE_SIZE" envDefault:"5"`
	StandingsCacheTTL  time.Duration `env:"FPL_STANDINGS_CACHE_TTL"  envDefault:"24h"`

	ListenAddr string `env:"FPL_LISTEN_ADDR" envDefault:":5001"`
	LogLevel   string `env:"FPL_LOG_LEVEL"   envDefault:"info"`
	LogPretty  bool   `env:"FPL_LOG_PRETTY"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("FPL_API_BASE_URL must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FPL_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	if c.CatalogTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FPL_CATALOG_TIMEOUT must be positive, got %s", c.CatalogTimeout))
	}
	if c.PagePause < 0 {
		errs = append(errs, fmt.Errorf("FPL_PAGE_PAUSE must not be negative, got %s", c.PagePause))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("FPL_CACHE_DIR must not be empty"))
	}
	if c.CacheFreshness <= 0 {
		errs = append(errs, fmt.Errorf("FPL_CACHE_FRESHNESS must be positive, got %s", c.CacheFreshness))
	}
	if c.CoverageThreshold <= 0 || c.CoverageThreshold > 1 {
		errs = append(errs, fmt.Errorf("FPL_COVERAGE_THRESHOLD must be in (0, 1], got %g", c.CoverageThreshold))
	}
	if _, err := fetch.ProfileByName(c.Profile); err != nil {
		errs = append(errs, fmt.Errorf("FPL_PROFILE: %w", err))
	}
	if c.StandingsCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("FPL_STANDINGS_CACHE_SIZE must be positive, got %d", c.StandingsCacheSize))
	}
	if c.StandingsCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("FPL_STANDINGS_CACHE_TTL must be positive, got %s", c.StandingsCacheTTL))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("FPL_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}
	return errors.Join(errs...)
}

// FetchProfile resolves the configured preset.
func (c Config) FetchProfile() fetch.Profile {
	p, err := fetch.ProfileByName(c.Profile)
	if err != nil {
		return fetch.DefaultProfile()
	}
	return p
}

// Reconciler builds the coverage reconciler for the configured threshold.
func (c Config) Reconciler() (*coverage.Reconciler, error) {
	return coverage.New(c.CoverageThreshold)
}

// Client returns the remote client settings. Cache and Limiter are left for
// the caller to attach.
func (c Config) Client() fpl.Config {
	return fpl.Config{
		BaseURL:        c.APIBaseURL,
		UserAgent:      c.UserAgent,
		RequestTimeout: c.RequestTimeout,
		CatalogTimeout: c.CatalogTimeout,
		PagePause:      c.PagePause,
	}
}

// Store returns the cache store settings.
func (c Config) Store() store.Config {
	return store.Config{Dir: c.CacheDir, Freshness: c.CacheFreshness}
}

// Standings returns the scoped standings cache settings.
func (c Config) Standings() standings.Config {
	return standings.Config{MaxEntries: c.StandingsCacheSize, TTL: c.StandingsCacheTTL}
}

// Logging returns the logger settings. Output defaults to stderr.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	cfg.Pretty = c.LogPretty
	return cfg
}
