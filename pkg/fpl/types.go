package fpl

import (
	"github.com/KasraH/fpl-combos/pkg/roster"
)

// Player is one entry in the bootstrap "elements" list.
type Player struct {
	ID          roster.ItemID `json:"id"`
	FirstName   string        `json:"first_name"`
	SecondName  string        `json:"second_name"`
	WebName     string        `json:"web_name"`
	Team        int           `json:"team"`
	ElementType int           `json:"element_type"`
}

// FullName joins first and second name.
func (p Player) FullName() string {
	return p.FirstName + " " + p.SecondName
}

// Team is one entry in the bootstrap "teams" list.
type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// ElementType is a playing position.
type ElementType struct {
	ID                int    `json:"id"`
	SingularName      string `json:"singular_name"`
	SingularNameShort string `json:"singular_name_short"`
}

// Event is a gameweek.
type Event struct {
	ID        roster.Version `json:"id"`
	Name      string         `json:"name"`
	IsCurrent bool           `json:"is_current"`
	Finished  bool           `json:"finished"`
}

// Bootstrap is the static game data: players, teams, positions, gameweeks.
type Bootstrap struct {
	Elements     []Player      `json:"elements"`
	Teams        []Team        `json:"teams"`
	ElementTypes []ElementType `json:"element_types"`
	Events       []Event       `json:"events"`
}

// CurrentEvent returns the gameweek flagged as current, or 1 before the
// season starts.
func (b *Bootstrap) CurrentEvent() roster.Version {
	if b == nil {
		return 1
	}
	for _, e := range b.Events {
		if e.IsCurrent {
			return e.ID
		}
	}
	return 1
}

type standingsPage struct {
	League struct {
		ID   roster.GroupID `json:"id"`
		Name string         `json:"name"`
	} `json:"league"`
	Standings struct {
		HasNext bool            `json:"has_next"`
		Page    int             `json:"page"`
		Results []roster.Member `json:"results"`
	} `json:"standings"`
}
