package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
)

// Meta is the companion metadata of a record. It is stored separately so
// listing never has to decompress a payload.
type Meta struct {
	GroupID      roster.GroupID `json:"league_id"`
	Version      roster.Version `json:"gameweek"`
	EntityCount  int            `json:"manager_count"`
	CreatedAt    time.Time      `json:"cached_at"`
	TotalMembers int            `json:"total_managers_in_league"`
	GroupName    string         `json:"league_name,omitempty"`
}

// Coverage is the cached share of the league's members, 0 when unknown.
func (m Meta) Coverage() float64 {
	if m.TotalMembers <= 0 {
		return 0
	}
	return float64(m.EntityCount) / float64(m.TotalMembers)
}

// Age returns how long ago the record was written.
func (m Meta) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// Record is a loaded cache record.
type Record struct {
	Meta    Meta
	Rosters roster.Mapping
	// Snapshot is nil for records written before snapshots were stored.
	Snapshot *roster.GroupSnapshot
}

// IsLegacy reports whether the record carries no group snapshot.
func (r *Record) IsLegacy() bool {
	return r.Snapshot == nil
}

// payload is the on-disk shape of the roster blob.
type payload struct {
	Rosters  roster.Mapping        `json:"manager_squads"`
	Snapshot *roster.GroupSnapshot `json:"league_data,omitempty"`
}

// decodePayload accepts both the current wrapper object and the legacy form
// in which the blob is the bare member mapping.
func decodePayload(data []byte) (*payload, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if _, ok := probe["manager_squads"]; ok {
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if p.Rosters == nil {
			p.Rosters = roster.Mapping{}
		}
		return &p, nil
	}

	legacy := roster.Mapping{}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy payload: %w", err)
	}
	return &payload{Rosters: legacy}, nil
}
