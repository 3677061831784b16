package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/KasraH/fpl-combos/internal/config"
	"github.com/KasraH/fpl-combos/pkg/cache"
	"github.com/KasraH/fpl-combos/pkg/fpl"
	"github.com/KasraH/fpl-combos/pkg/league"
	"github.com/KasraH/fpl-combos/pkg/logging"
	"github.com/KasraH/fpl-combos/pkg/ratelimit"
	"github.com/KasraH/fpl-combos/pkg/standings"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is the wired service graph for one invocation.
type app struct {
	svc   *league.Service
	store *store.Store
	redis *redis.Client
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// newStore opens the cache store alone, for commands that never reach the
// provider.
func newStore(cfg config.Config, logger zerolog.Logger) (*store.Store, error) {
	return store.New(cfg.Store(), logger)
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	clientCfg := cfg.Client()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}

		a.redis = rdb
		clientCfg.Cache = cache.NewManager(rdb)
		clientCfg.Limiter = ratelimit.NewTracker(rdb, ratelimit.DefaultConfig(), logging.NewLogger("ratelimit"))
	}

	client, err := fpl.New(clientCfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	st, err := newStore(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.store = st

	rec, err := cfg.Reconciler()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	stale := league.RejectStale
	if cfg.AcceptStale {
		stale = league.AcceptStale
	}

	svc, err := league.NewService(client, st, standings.New(cfg.Standings(), logger), league.Config{
		Profile:     cfg.FetchProfile(),
		Reconciler:  rec,
		StalePolicy: stale,
		SiteURL:     cfg.SiteURL,
	}, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}
