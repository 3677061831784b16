package league

import (
	"context"
	"errors"
	"fmt"

	"github.com/KasraH/fpl-combos/pkg/coverage"
	"github.com/KasraH/fpl-combos/pkg/fetch"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/standings"
	"github.com/KasraH/fpl-combos/pkg/store"
)

// LoadOptions tunes a single load.
type LoadOptions struct {
	// Version defaults to the current gameweek.
	Version roster.Version
	// Profile overrides the service's fetch profile.
	Profile *fetch.Profile
	// Progress receives per-batch progress of any fetch run.
	Progress func(fetch.Progress)
	// Refresh ignores the persisted record and refetches every member.
	Refresh bool
}

// LoadResult summarizes a load.
type LoadResult struct {
	GroupID      roster.GroupID `json:"league_id"`
	Version      roster.Version `json:"gameweek"`
	GroupName    string         `json:"league_name,omitempty"`
	MemberCount  int            `json:"manager_count"`
	TotalMembers int            `json:"total_managers"`
	Coverage     float64        `json:"coverage"`

	FromCache bool `json:"from_cache"`
	Stale     bool `json:"stale,omitempty"`
	Upgraded  bool `json:"upgraded,omitempty"`
	Fetched   int  `json:"fetched"`
	Failed    int  `json:"failed"`

	Message string `json:"message"`
}

// LoadLeague makes the league's rosters for a gameweek available for
// queries. A persisted record is reused when present; only members missing
// from it are fetched when its coverage falls below the threshold. Records
// without a league snapshot are upgraded in place.
//
// A save failure is returned alongside a usable result: the league stays
// loaded in memory and SaveCurrent can retry the write.
func (s *Service) LoadLeague(ctx context.Context, groupID roster.GroupID, opts LoadOptions) (*LoadResult, error) {
	if groupID <= 0 {
		return nil, fmt.Errorf("invalid league id %d", groupID)
	}

	version := opts.Version
	if version <= 0 {
		v, err := s.CurrentVersion(ctx)
		if err != nil {
			return nil, err
		}
		version = v
	}

	if cur := s.getCurrent(); !opts.Refresh && s.covered(cur, groupID, version) {
		return &LoadResult{
			GroupID:      groupID,
			Version:      version,
			GroupName:    snapshotName(cur.snapshot),
			MemberCount:  len(cur.rosters),
			TotalMembers: len(cur.snapshot.MemberIDs()),
			FromCache:    true,
			Message:      fmt.Sprintf("League %d data already loaded", groupID),
		}, nil
	}

	key := fmt.Sprintf("%d_%d_%t", groupID, version, opts.Refresh)
	v, err, shared := s.flight.Do(key, func() (any, error) {
		return s.load(ctx, groupID, version, opts)
	})
	if shared {
		s.logger.Debug().Int64("group_id", int64(groupID)).Int("version", int(version)).Msg("Joined in-flight league load")
	}
	res, _ := v.(*LoadResult)
	return res, err
}

func (s *Service) load(ctx context.Context, groupID roster.GroupID, version roster.Version, opts LoadOptions) (*LoadResult, error) {
	log := s.logger.With().Int64("group_id", int64(groupID)).Int("version", int(version)).Logger()
	res := &LoadResult{GroupID: groupID, Version: version}

	var cached *store.Record
	if !opts.Refresh && s.store.Exists(groupID, version) {
		rec, err := s.store.Load(groupID, version, false)
		switch {
		case err == nil:
			cached = rec
		case errors.Is(err, store.ErrCacheStale):
			res.Stale = true
			if s.cfg.StalePolicy(rec.Meta) {
				log.Warn().Time("cached_at", rec.Meta.CreatedAt).Msg("Using stale cached record")
				cached = rec
			} else {
				log.Info().Msg("Stale cached record rejected - fetching afresh")
			}
		case errors.Is(err, store.ErrCacheMiss):
		default:
			log.Warn().Err(err).Msg("Cached record unreadable - fetching afresh")
		}
	}

	// Membership list: the in-memory standings, then the record's snapshot,
	// then the provider.
	skey := standings.Key{GroupID: groupID, Version: version}
	snapshot, haveStandings := s.standings.Get(skey)
	if !haveStandings && cached != nil && !cached.IsLegacy() {
		snapshot = cached.Snapshot
	}
	if snapshot == nil {
		snap, err := s.remote.GroupSnapshot(ctx, groupID)
		switch {
		case err == nil:
			snapshot = snap
		case cached != nil:
			log.Warn().Err(err).Msg("Could not fetch league standings - using cached rosters only")
		default:
			return nil, fmt.Errorf("load league %d: %w", groupID, err)
		}
	}
	if snapshot != nil {
		s.standings.Put(skey, snapshot)
		if cached != nil && cached.IsLegacy() {
			res.Upgraded = true
			log.Info().Msg("Upgrading legacy cached record with league standings")
		}
	}
	defer s.standings.Cleanup()

	var existing roster.Mapping
	if cached != nil {
		existing = cached.Rosters
		res.FromCache = true
	}

	plan := coverage.Plan{SkipFetch: true}
	if snapshot != nil {
		plan = s.cfg.Reconciler.Reconcile(existing.IDSet(), snapshot.MemberIDs())
	}

	log.Info().
		Int("cached", len(existing)).
		Int("required", plan.Required).
		Float64("coverage", plan.Coverage).
		Bool("skip_fetch", plan.SkipFetch).
		Int("to_fetch", len(plan.IDsToFetch)).
		Msg("Coverage reconciled")

	merged := existing
	var runErr error
	if !plan.SkipFetch && len(plan.IDsToFetch) > 0 {
		profile := s.cfg.Profile
		if opts.Profile != nil {
			profile = *opts.Profile
		}
		var schedOpts []fetch.Option
		if opts.Progress != nil {
			schedOpts = append(schedOpts, fetch.WithProgress(opts.Progress))
		}
		sched := fetch.NewScheduler(s.remote, profile, s.base, schedOpts...)

		fr, err := sched.Fetch(ctx, plan.IDsToFetch, version)
		if fr != nil {
			res.Fetched = len(fr.Rosters)
			res.Failed = len(fr.Failures)
			merged = coverage.Merge(existing, fr.Rosters)
		}
		switch {
		case err == nil:
		case errors.Is(err, fetch.ErrFetchRunFailed) && len(existing) > 0:
			log.Warn().Err(err).Msg("Gap fetch failed - continuing with cached rosters")
		default:
			runErr = err
		}
	}

	if len(merged) == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("load league %d: %w", groupID, runErr)
		}
		return nil, fmt.Errorf("load league %d: %w", groupID, fetch.ErrFetchRunFailed)
	}
	// An interrupted run is neither kept nor persisted; the counts are
	// reported so the caller can tell how far it got.
	if runErr != nil {
		log.Warn().Err(runErr).Int("fetched", res.Fetched).Msg("League load interrupted - partial rosters discarded")
		return res, fmt.Errorf("load league %d: %w", groupID, runErr)
	}

	res.GroupName = snapshotName(snapshot)
	res.MemberCount = len(merged)
	if snapshot != nil {
		res.TotalMembers = len(snapshot.MemberIDs())
		res.Coverage = float64(res.MemberCount) / float64(max(res.TotalMembers, 1))
	}

	s.setCurrent(&loaded{groupID: groupID, version: version, rosters: merged, snapshot: snapshot})

	var saveErr error
	if res.Fetched > 0 || res.Upgraded {
		if _, err := s.store.Save(groupID, version, merged, snapshot); err != nil {
			saveErr = err
			log.Error().Err(err).Msg("Failed to persist league rosters - data kept in memory")
		}
	}

	res.Message = loadMessage(res)
	log.Info().
		Int("members", res.MemberCount).
		Int("total_members", res.TotalMembers).
		Int("fetched", res.Fetched).
		Int("failed", res.Failed).
		Bool("from_cache", res.FromCache).
		Msg("League loaded")

	return res, saveErr
}

// covered reports whether cur already holds this league and version at the
// reconciler's coverage threshold.
func (s *Service) covered(cur *loaded, groupID roster.GroupID, version roster.Version) bool {
	if cur == nil || cur.groupID != groupID || cur.version != version || len(cur.rosters) == 0 {
		return false
	}
	if cur.snapshot == nil {
		return true
	}
	return s.cfg.Reconciler.Reconcile(cur.rosters.IDSet(), cur.snapshot.MemberIDs()).SkipFetch
}

func loadMessage(r *LoadResult) string {
	switch {
	case r.FromCache && r.Fetched == 0:
		return fmt.Sprintf("Successfully loaded league %d from cache (%d managers)", r.GroupID, r.MemberCount)
	case r.FromCache:
		return fmt.Sprintf("Loaded league %d from cache and fetched %d missing managers (%d failed)", r.GroupID, r.Fetched, r.Failed)
	default:
		return fmt.Sprintf("Successfully loaded league %d: %d/%d managers (%d failed)", r.GroupID, r.MemberCount, r.TotalMembers, r.Failed)
	}
}

func snapshotName(s *roster.GroupSnapshot) string {
	if s == nil {
		return ""
	}
	return s.Name
}
