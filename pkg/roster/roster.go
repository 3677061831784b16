// Package roster defines the league, member and squad types shared by the
// fetch pipeline, the on-disk cache and the combination query engine.
//
// Remote payloads carry optional and variant fields. Optional fields are
// modelled as pointers or nil slices so callers can tell "absent" apart from
// "present but zero" without probing.
package roster

import (
	"sort"
)

// GroupID identifies a league.
type GroupID int64

// MemberID identifies a manager (an "entry") within a league.
type MemberID int64

// ItemID identifies a player in the item catalog.
type ItemID int

// Version is a gameweek number. Distinct versions are independent cache keys.
type Version int

// Pick is one player slot in a manager's squad.
type Pick struct {
	Element       ItemID `json:"element"`
	Position      int    `json:"position"`
	Multiplier    int    `json:"multiplier"`
	IsCaptain     bool   `json:"is_captain"`
	IsViceCaptain bool   `json:"is_vice_captain"`
}

// EntryHistory is the per-gameweek summary attached to a squad payload.
type EntryHistory struct {
	Event          int `json:"event"`
	Points         int `json:"points"`
	TotalPoints    int `json:"total_points"`
	Rank           int `json:"rank"`
	EventTransfers int `json:"event_transfers"`
	PointsOnBench  int `json:"points_on_bench"`
}

// Roster is a manager's squad payload for one gameweek.
type Roster struct {
	// Picks is nil when the payload carried no picks field at all.
	Picks []Pick `json:"picks"`

	EntryHistory       *EntryHistory `json:"entry_history,omitempty"`
	CurrentEventPoints *int          `json:"current_event_points,omitempty"`
	ActiveChip         *string       `json:"active_chip,omitempty"`
}

// HasPicks reports whether the picks field was present in the payload.
func (r Roster) HasPicks() bool {
	return r.Picks != nil
}

// ItemIDs returns the set of item ids held by the roster. ok is false when the
// payload is malformed: picks absent or a pick without an element reference.
func (r Roster) ItemIDs() (ids map[ItemID]struct{}, ok bool) {
	if !r.HasPicks() {
		return nil, false
	}
	ids = make(map[ItemID]struct{}, len(r.Picks))
	for _, p := range r.Picks {
		if p.Element <= 0 {
			return nil, false
		}
		ids[p.Element] = struct{}{}
	}
	return ids, true
}

// Points returns the gameweek points carried by the payload. entry_history is
// preferred over current_event_points; found is false when neither is present.
func (r Roster) Points() (points int, found bool) {
	if r.EntryHistory != nil {
		return r.EntryHistory.Points, true
	}
	if r.CurrentEventPoints != nil {
		return *r.CurrentEventPoints, true
	}
	return 0, false
}

// Member is one row of a league's standings.
type Member struct {
	Entry      MemberID `json:"entry"`
	EntryName  string   `json:"entry_name"`
	PlayerName string   `json:"player_name"`
	Rank       int      `json:"rank"`
	Total      int      `json:"total"`
	EventTotal int      `json:"event_total"`
}

// GroupSnapshot is the flattened member list of a league as fetched at one
// point in time. It is never mutated after construction.
type GroupSnapshot struct {
	GroupID GroupID  `json:"group_id"`
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// MemberIDs returns the member ids in standings order with duplicates removed.
func (s *GroupSnapshot) MemberIDs() []MemberID {
	if s == nil {
		return nil
	}
	seen := make(map[MemberID]struct{}, len(s.Members))
	ids := make([]MemberID, 0, len(s.Members))
	for _, m := range s.Members {
		if _, dup := seen[m.Entry]; dup {
			continue
		}
		seen[m.Entry] = struct{}{}
		ids = append(ids, m.Entry)
	}
	return ids
}

// Member looks up a member row by id.
func (s *GroupSnapshot) Member(id MemberID) (Member, bool) {
	if s == nil {
		return Member{}, false
	}
	for _, m := range s.Members {
		if m.Entry == id {
			return m, true
		}
	}
	return Member{}, false
}

// Mapping maps a member to its roster payload.
type Mapping map[MemberID]Roster

// IDs returns the mapping's keys in ascending order.
func (m Mapping) IDs() []MemberID {
	ids := make([]MemberID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IDSet returns the mapping's keys as a set.
func (m Mapping) IDSet() map[MemberID]struct{} {
	set := make(map[MemberID]struct{}, len(m))
	for id := range m {
		set[id] = struct{}{}
	}
	return set
}

// Clone returns a shallow copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for id, r := range m {
		out[id] = r
	}
	return out
}

// Unique collapses duplicate ids while preserving first-seen order.
func Unique(ids []MemberID) []MemberID {
	seen := make(map[MemberID]struct{}, len(ids))
	out := make([]MemberID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
