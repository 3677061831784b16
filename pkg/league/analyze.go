package league

import (
	"context"
	"fmt"

	"github.com/KasraH/fpl-combos/pkg/query"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/standings"
)

// Row is one matching member enriched with standings data.
type Row struct {
	MemberID     roster.MemberID `json:"manager_id"`
	ManagerName  string          `json:"manager_name"`
	TeamName     string          `json:"team_name"`
	TotalPoints  int             `json:"total_points"`
	RoundPoints  int             `json:"gw_points"`
	URL          string          `json:"fpl_url"`
	PlayersFound []string        `json:"players_found"`
}

// Analysis is a combination query result ready for presentation.
type Analysis struct {
	GroupID      roster.GroupID `json:"league_id"`
	Version      roster.Version `json:"current_gameweek"`
	PlayersFound []string       `json:"players_found"`
	Scanned      int            `json:"total_managers"`
	MatchCount   int            `json:"matching_managers"`
	Percentage   float64        `json:"percentage"`
	Rows         []Row          `json:"results"`

	Result *query.Result `json:"-"`
}

// AnalyzeCombination finds the loaded league's members holding every named
// item. The first DefaultMaxRows matches are enriched with standings data.
func (s *Service) AnalyzeCombination(ctx context.Context, names []string) (*Analysis, error) {
	if len(names) == 0 {
		return nil, query.ErrNoItems
	}
	cur := s.getCurrent()
	if cur == nil || len(cur.rosters) == 0 {
		return nil, ErrNoLeagueLoaded
	}

	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	res, err := query.Run(cur.rosters, cat, names)
	if err != nil {
		return nil, err
	}

	found := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		if item, ok := cat.Item(it.ID); ok {
			found = append(found, item.WebName)
		} else {
			found = append(found, it.Name)
		}
	}

	snapshot := s.standingsFor(ctx, cur)

	a := &Analysis{
		GroupID:      cur.groupID,
		Version:      cur.version,
		PlayersFound: found,
		Scanned:      res.TotalScanned,
		MatchCount:   res.MatchCount,
		Percentage:   res.Percentage(),
		Rows:         make([]Row, 0, min(res.MatchCount, s.cfg.MaxRows)),
		Result:       res,
	}

	for _, id := range res.Matches {
		if len(a.Rows) == s.cfg.MaxRows {
			break
		}
		row := Row{
			MemberID:     id,
			ManagerName:  fmt.Sprintf("Manager %d", id),
			TeamName:     fmt.Sprintf("Team %d", id),
			URL:          fmt.Sprintf("%s/entry/%d/event/%d", s.cfg.SiteURL, id, cur.version),
			PlayersFound: found,
		}
		if m, ok := snapshot.Member(id); ok {
			row.ManagerName = m.PlayerName
			row.TeamName = m.EntryName
			row.TotalPoints = m.Total
		}
		if pts, ok := cur.rosters[id].Points(); ok {
			row.RoundPoints = pts
		}
		a.Rows = append(a.Rows, row)
	}

	s.logger.Info().
		Int64("group_id", int64(cur.groupID)).
		Strs("items", found).
		Int("matches", a.MatchCount).
		Int("scanned", a.Scanned).
		Float64("percentage", a.Percentage).
		Msg("Combination analyzed")

	return a, nil
}

// standingsFor returns the league snapshot for enrichment: the standings
// cache, then the loaded snapshot, then the provider. Failure yields nil and
// rows fall back to placeholder names.
func (s *Service) standingsFor(ctx context.Context, cur *loaded) *roster.GroupSnapshot {
	key := standings.Key{GroupID: cur.groupID, Version: cur.version}
	defer s.standings.Cleanup()

	if snap, ok := s.standings.Get(key); ok {
		return snap
	}
	if cur.snapshot != nil {
		s.standings.Put(key, cur.snapshot)
		return cur.snapshot
	}

	snap, err := s.remote.GroupSnapshot(ctx, cur.groupID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("group_id", int64(cur.groupID)).Msg("Could not fetch standings for result enrichment")
		return nil
	}
	s.standings.Put(key, snap)
	return snap
}
