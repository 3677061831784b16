// Package league ties the pipeline together: it resolves which members need
// fetching for a league, drives the fetch scheduler, persists the merged
// result and answers combination queries against the loaded league.
package league

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KasraH/fpl-combos/pkg/catalog"
	"github.com/KasraH/fpl-combos/pkg/coverage"
	"github.com/KasraH/fpl-combos/pkg/fetch"
	"github.com/KasraH/fpl-combos/pkg/fpl"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/standings"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultSiteURL is the public site used for entry links.
const DefaultSiteURL = "https://fantasy.premierleague.com"

// DefaultMaxRows caps the enriched rows of an analysis.
const DefaultMaxRows = 50

// ErrNoLeagueLoaded is returned by queries issued before any league is loaded.
var ErrNoLeagueLoaded = errors.New("no league loaded")

// Remote is the provider surface the service needs. *fpl.Client implements it.
type Remote interface {
	fetch.RosterSource
	Bootstrap(ctx context.Context) (*fpl.Bootstrap, error)
	GroupSnapshot(ctx context.Context, groupID roster.GroupID) (*roster.GroupSnapshot, error)
}

// StalePolicy decides whether a record older than the freshness window is
// used. Returning false discards it and fetches the league afresh.
type StalePolicy func(meta store.Meta) bool

// AcceptStale always uses stale records.
func AcceptStale(store.Meta) bool { return true }

// RejectStale never uses stale records.
func RejectStale(store.Meta) bool { return false }

// Config holds service settings.
type Config struct {
	Profile     fetch.Profile
	Reconciler  *coverage.Reconciler
	StalePolicy StalePolicy
	SiteURL     string
	MaxRows     int
}

type loaded struct {
	groupID  roster.GroupID
	version  roster.Version
	rosters  roster.Mapping
	snapshot *roster.GroupSnapshot
}

// Service is safe for concurrent use. Concurrent loads of the same league and
// version share one run.
type Service struct {
	remote    Remote
	store     *store.Store
	standings *standings.Cache
	cfg       Config
	logger    zerolog.Logger
	// base has no component field; the scheduler adds its own.
	base zerolog.Logger

	flight singleflight.Group

	mu        sync.RWMutex
	bootstrap *fpl.Bootstrap
	catalog   *catalog.Catalog
	current   *loaded
}

// NewService creates a service. remote, st and sc are required.
func NewService(remote Remote, st *store.Store, sc *standings.Cache, cfg Config, logger zerolog.Logger) (*Service, error) {
	if remote == nil || st == nil || sc == nil {
		return nil, fmt.Errorf("remote, store and standings cache are required")
	}
	if err := cfg.Profile.Validate(); err != nil {
		cfg.Profile = fetch.DefaultProfile()
	}
	if cfg.Reconciler == nil {
		cfg.Reconciler = coverage.Default()
	}
	if cfg.StalePolicy == nil {
		cfg.StalePolicy = AcceptStale
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}

	return &Service{
		remote:    remote,
		store:     st,
		standings: sc,
		cfg:       cfg,
		logger:    logger.With().Str("component", "league").Logger(),
		base:      logger,
	}, nil
}

// Store returns the underlying cache store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Catalog returns the item catalog, fetching the bootstrap payload on first use.
func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	s.mu.RLock()
	c := s.catalog
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	v, err, _ := s.flight.Do("bootstrap", func() (any, error) {
		b, err := s.remote.Bootstrap(ctx)
		if err != nil {
			return nil, fmt.Errorf("load game data: %w", err)
		}
		c := catalog.New(b)

		s.mu.Lock()
		s.bootstrap = b
		s.catalog = c
		s.mu.Unlock()

		s.logger.Info().
			Int("items", c.Len()).
			Int("current_version", int(b.CurrentEvent())).
			Msg("Game data loaded")
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Catalog), nil
}

// CurrentVersion returns the current gameweek.
func (s *Service) CurrentVersion(ctx context.Context) (roster.Version, error) {
	if _, err := s.Catalog(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bootstrap.CurrentEvent(), nil
}

// SearchItems returns catalog entries matching query.
func (s *Service) SearchItems(ctx context.Context, query string, limit int) ([]catalog.Item, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Search(query, limit), nil
}

// LeagueInfo describes the currently loaded league.
type LeagueInfo struct {
	Loaded      bool           `json:"loaded"`
	GroupID     roster.GroupID `json:"league_id,omitempty"`
	Version     roster.Version `json:"gameweek,omitempty"`
	MemberCount int            `json:"manager_count"`
	Name        string         `json:"league_name,omitempty"`
}

// LeagueInfo returns what is loaded, if anything.
func (s *Service) LeagueInfo() LeagueInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return LeagueInfo{}
	}
	info := LeagueInfo{
		Loaded:      true,
		GroupID:     s.current.groupID,
		Version:     s.current.version,
		MemberCount: len(s.current.rosters),
		Name:        "Unknown",
	}
	if s.current.snapshot != nil && s.current.snapshot.Name != "" {
		info.Name = s.current.snapshot.Name
	}
	return info
}

// CacheInfo lists the persisted records, most recent first.
func (s *Service) CacheInfo() ([]store.Meta, error) {
	return s.store.List()
}

// SaveCurrent persists the loaded league again, for retrying a failed save.
func (s *Service) SaveCurrent() (store.Meta, error) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur == nil {
		return store.Meta{}, ErrNoLeagueLoaded
	}
	return s.store.Save(cur.groupID, cur.version, cur.rosters, cur.snapshot)
}

func (s *Service) setCurrent(l *loaded) {
	s.mu.Lock()
	s.current = l
	s.mu.Unlock()
}

func (s *Service) getCurrent() *loaded {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
