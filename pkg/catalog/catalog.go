// Package catalog indexes the player list from the bootstrap payload for name
// resolution and search.
package catalog

import (
	"strings"

	"github.com/KasraH/fpl-combos/pkg/fpl"
	"github.com/KasraH/fpl-combos/pkg/roster"
)

// DefaultSearchLimit caps Search results when no limit is given.
const DefaultSearchLimit = 20

const unknown = "Unknown"

// Item is a player with its team and position names resolved.
type Item struct {
	ID         roster.ItemID `json:"id"`
	WebName    string        `json:"name"`
	FullName   string        `json:"full_name"`
	FirstName  string        `json:"-"`
	SecondName string        `json:"-"`
	Team       string        `json:"team"`
	Position   string        `json:"position"`

	webLower, fullLower, firstLower, secondLower string
}

// Catalog is an immutable index over one bootstrap payload.
type Catalog struct {
	items []Item
	byID  map[roster.ItemID]int
}

// New builds a catalog. A nil bootstrap yields an empty catalog.
func New(b *fpl.Bootstrap) *Catalog {
	c := &Catalog{byID: make(map[roster.ItemID]int)}
	if b == nil {
		return c
	}

	teams := make(map[int]string, len(b.Teams))
	for _, t := range b.Teams {
		teams[t.ID] = t.Name
	}
	positions := make(map[int]string, len(b.ElementTypes))
	for _, et := range b.ElementTypes {
		positions[et.ID] = et.SingularName
	}

	c.items = make([]Item, 0, len(b.Elements))
	for _, p := range b.Elements {
		it := Item{
			ID:         p.ID,
			WebName:    p.WebName,
			FullName:   p.FullName(),
			FirstName:  p.FirstName,
			SecondName: p.SecondName,
			Team:       unknown,
			Position:   unknown,
		}
		if name, ok := teams[p.Team]; ok {
			it.Team = name
		}
		if name, ok := positions[p.ElementType]; ok {
			it.Position = name
		}
		it.webLower = strings.ToLower(it.WebName)
		it.fullLower = strings.ToLower(it.FullName)
		it.firstLower = strings.ToLower(it.FirstName)
		it.secondLower = strings.ToLower(it.SecondName)

		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item looks up an item by id.
func (c *Catalog) Item(id roster.ItemID) (Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

type tier func(it *Item, q string) bool

var (
	exactWeb       tier = func(it *Item, q string) bool { return it.webLower == q }
	prefixWeb      tier = func(it *Item, q string) bool { return strings.HasPrefix(it.webLower, q) }
	containsWeb    tier = func(it *Item, q string) bool { return strings.Contains(it.webLower, q) }
	containsFull   tier = func(it *Item, q string) bool { return strings.Contains(it.fullLower, q) }
	containsFirst  tier = func(it *Item, q string) bool { return strings.Contains(it.firstLower, q) }
	containsSecond tier = func(it *Item, q string) bool { return strings.Contains(it.secondLower, q) }

	searchTiers  = []tier{exactWeb, prefixWeb, containsWeb, containsFull, containsFirst, containsSecond}
	resolveTiers = []tier{exactWeb, containsWeb, containsFull, containsFirst, containsSecond}
)

// ResolveItem returns the first item matching name, trying an exact web name
// match first and then progressively looser substring matches.
func (c *Catalog) ResolveItem(name string) (roster.ItemID, bool) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return 0, false
	}
	for _, match := range resolveTiers {
		for i := range c.items {
			if match(&c.items[i], q) {
				return c.items[i].ID, true
			}
		}
	}
	return 0, false
}

// Search returns up to limit items matching query, ranked by tier and
// deduplicated by id. An empty query returns nothing.
func (c *Catalog) Search(query string, limit int) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	seen := make(map[roster.ItemID]struct{})
	var out []Item
	for _, match := range searchTiers {
		for i := range c.items {
			it := &c.items[i]
			if _, dup := seen[it.ID]; dup || !match(it, q) {
				continue
			}
			seen[it.ID] = struct{}{}
			out = append(out, *it)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
