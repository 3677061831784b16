// Package fpl is the transport to the Fantasy Premier League read-only API.
// It issues single requests and walks standings pagination; it performs no
// retries of its own beyond the per-request timeout. Retrying transient
// failures is the fetch scheduler's job.
package fpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KasraH/fpl-combos/pkg/cache"
	"github.com/KasraH/fpl-combos/pkg/ratelimit"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://fantasy.premierleague.com/api"

// Endpoint labels used in metrics and logs.
const (
	endpointBootstrap = "bootstrap"
	endpointStandings = "standings"
	endpointPicks     = "picks"
)

// Config holds the client configuration.
type Config struct {
	BaseURL   string
	UserAgent string

	// RequestTimeout bounds a single squad request.
	RequestTimeout time.Duration
	// CatalogTimeout bounds bootstrap and standings page requests.
	CatalogTimeout time.Duration
	// PagePause is slept between standings pages.
	PagePause time.Duration

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client

	// Cache is optional; when set, bootstrap and standings pages are cached.
	Cache *cache.Manager
	// Limiter is optional; when set, requests are gated by the shared error budget.
	Limiter *ratelimit.Tracker
}

// DefaultConfig returns the settings used against the public API.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      "fpl-combos/1.0",
		RequestTimeout: 5 * time.Second,
		CatalogTimeout: 10 * time.Second,
		PagePause:      500 * time.Millisecond,
	}
}

// Client talks to the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a client. Zero durations take their defaults.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.CatalogTimeout <= 0 {
		cfg.CatalogTimeout = def.CatalogTimeout
	}
	if cfg.PagePause < 0 {
		cfg.PagePause = 0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		logger:     logger.With().Str("component", "fpl-client").Logger(),
	}, nil
}

// Bootstrap fetches the static game data.
func (c *Client) Bootstrap(ctx context.Context) (*Bootstrap, error) {
	var out Bootstrap
	if err := c.getJSON(ctx, endpointBootstrap, "/bootstrap-static/", nil, c.config.CatalogTimeout, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GroupSnapshot walks every standings page of a classic league and returns
// the flattened member list. A failure on the first page is returned; a
// failure on a later page ends the walk and returns what was collected.
func (c *Client) GroupSnapshot(ctx context.Context, groupID roster.GroupID) (*roster.GroupSnapshot, error) {
	path := fmt.Sprintf("/leagues-classic/%d/standings/", groupID)
	snap := &roster.GroupSnapshot{GroupID: groupID}

	for page := 1; ; page++ {
		query := url.Values{"page_standings": []string{strconv.Itoa(page)}}

		var resp standingsPage
		if err := c.getJSON(ctx, endpointStandings, path, query, c.config.CatalogTimeout, true, &resp); err != nil {
			if page == 1 || errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("fetch league %d standings page %d: %w", groupID, page, err)
			}
			c.logger.Warn().
				Err(err).
				Int64("group_id", int64(groupID)).
				Int("page", page).
				Int("members", len(snap.Members)).
				Msg("Standings page failed - returning members collected so far")
			break
		}

		if page == 1 {
			snap.Name = resp.League.Name
		}
		if len(resp.Standings.Results) == 0 {
			break
		}
		snap.Members = append(snap.Members, resp.Standings.Results...)

		c.logger.Debug().
			Int64("group_id", int64(groupID)).
			Int("page", page).
			Int("page_members", len(resp.Standings.Results)).
			Int("total_members", len(snap.Members)).
			Msg("Standings page fetched")

		if !resp.Standings.HasNext {
			break
		}

		if c.config.PagePause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.PagePause):
			}
		}
	}

	c.logger.Info().
		Int64("group_id", int64(groupID)).
		Int("members", len(snap.Members)).
		Msg("League standings loaded")

	return snap, nil
}

// MemberRoster fetches one manager's squad for a gameweek.
func (c *Client) MemberRoster(ctx context.Context, memberID roster.MemberID, version roster.Version) (*roster.Roster, error) {
	path := fmt.Sprintf("/entry/%d/event/%d/picks/", memberID, version)

	var out roster.Roster
	if err := c.getJSON(ctx, endpointPicks, path, nil, c.config.RequestTimeout, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON performs one GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, label, path string, query url.Values, timeout time.Duration, cacheable bool, out any) error {
	key := cache.Key{Endpoint: path, QueryParams: query}

	if cacheable && c.config.Cache != nil {
		entry, err := c.config.Cache.Get(ctx, key)
		switch {
		case err == nil:
			if err := json.Unmarshal(entry.Data, out); err == nil {
				c.logger.Debug().Str("endpoint", label).Str("path", path).Msg("Served from response cache")
				return nil
			}
			_ = c.config.Cache.Delete(ctx, key)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", label).Msg("Response cache get error")
		}
	}

	if c.config.Limiter != nil {
		allowed, err := c.config.Limiter.ShouldAllowRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn().Err(err).Msg("Error budget check failed - allowing request")
		} else if !allowed {
			requestsTotal.WithLabelValues(label, "blocked").Inc()
			return &APIError{Endpoint: path, Class: ErrorClassRateLimit, Message: "blocked locally", Err: ErrRequestBlocked}
		}
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		requestsTotal.WithLabelValues(label, "network_error").Inc()
		return c.fail(ctx, &APIError{Endpoint: path, Class: ErrorClassNetwork, Message: "request failed", Err: err})
	}
	defer drainAndClose(resp.Body)

	requestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return c.fail(ctx, &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		})
	}

	entry, err := cache.ResponseToEntry(resp)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.fail(ctx, &APIError{Endpoint: path, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "read body", Err: err})
	}

	body := bytes.TrimSpace(entry.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return c.fail(ctx, &APIError{Endpoint: path, StatusCode: resp.StatusCode, Class: ErrorClassEmpty, Message: "no payload", Err: ErrEmptyResponse})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(ctx, &APIError{Endpoint: path, StatusCode: resp.StatusCode, Class: ErrorClassDecode, Message: "decode body", Err: err})
	}

	if c.config.Limiter != nil {
		if err := c.config.Limiter.RecordSuccess(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to record success in error budget")
		}
	}

	if cacheable && c.config.Cache != nil {
		if err := c.config.Cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", label).Msg("Failed to cache response")
		}
	}

	return nil
}

// fail records a transient failure and returns it.
func (c *Client) fail(ctx context.Context, apiErr *APIError) error {
	errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

	c.logger.Debug().
		Str("path", apiErr.Endpoint).
		Int("status", apiErr.StatusCode).
		Str("error_class", string(apiErr.Class)).
		Msg("Provider request failed")

	if c.config.Limiter != nil {
		if err := c.config.Limiter.RecordFailure(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to record failure in error budget")
		}
	}
	return apiErr
}

func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
