// Package query answers "which members hold all of these players" against an
// in-memory roster mapping. Every query is a full scan; no index is kept.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/KasraH/fpl-combos/pkg/roster"
)

var (
	// ErrItemNotFound matches every ItemNotFoundError via errors.Is.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoItems is returned when a query names no items.
	ErrNoItems = errors.New("at least one item name is required")

	// ErrNoRosters is returned when the mapping to scan is empty.
	ErrNoRosters = errors.New("no rosters loaded")
)

// ItemNotFoundError carries the name that failed to resolve.
type ItemNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found", e.Name)
}

// Is reports whether target is ErrItemNotFound.
func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// ItemResolver maps a free-text item name to its id. *catalog.Catalog
// implements it.
type ItemResolver interface {
	ResolveItem(name string) (roster.ItemID, bool)
}

// ResolvedItem pairs a requested name with its id.
type ResolvedItem struct {
	Name string
	ID   roster.ItemID
}

// Result is the outcome of a query.
type Result struct {
	Items []ResolvedItem
	// Matches is in ascending member id order.
	Matches []roster.MemberID
	// TotalScanned counts well-formed rosters; malformed ones are in Skipped.
	TotalScanned int
	Skipped      int
	MatchCount   int
}

// Percentage is matches over rosters scanned, in [0, 100].
func (r *Result) Percentage() float64 {
	if r.TotalScanned == 0 {
		return 0
	}
	return float64(r.MatchCount) / float64(r.TotalScanned) * 100
}

// ItemIDs returns the resolved target ids in request order.
func (r *Result) ItemIDs() []roster.ItemID {
	return itemIDs(r.Items)
}

// Resolve maps every name to an id. The first unresolvable name aborts with
// an ItemNotFoundError.
func Resolve(resolver ItemResolver, names []string) ([]ResolvedItem, error) {
	if len(names) == 0 {
		return nil, ErrNoItems
	}
	items := make([]ResolvedItem, 0, len(names))
	for _, name := range names {
		id, ok := resolver.ResolveItem(name)
		if !ok {
			return nil, &ItemNotFoundError{Name: name}
		}
		items = append(items, ResolvedItem{Name: name, ID: id})
	}
	return items, nil
}

// Run resolves names and scans rosters for members holding every item.
func Run(rosters roster.Mapping, resolver ItemResolver, names []string) (*Result, error) {
	items, err := Resolve(resolver, names)
	if err != nil {
		return nil, err
	}
	if len(rosters) == 0 {
		return nil, ErrNoRosters
	}

	res := Scan(rosters, itemIDs(items))
	res.Items = items
	return res, nil
}

// Scan returns the members whose roster is a superset of targets. Rosters
// with no picks field or with a pick lacking an element are skipped.
func Scan(rosters roster.Mapping, targets []roster.ItemID) *Result {
	res := &Result{Matches: []roster.MemberID{}}

	for id, r := range rosters {
		held, ok := r.ItemIDs()
		if !ok {
			res.Skipped++
			continue
		}
		res.TotalScanned++
		if holdsAll(held, targets) {
			res.Matches = append(res.Matches, id)
		}
	}

	sort.Slice(res.Matches, func(i, j int) bool { return res.Matches[i] < res.Matches[j] })
	res.MatchCount = len(res.Matches)
	return res
}

func holdsAll(held map[roster.ItemID]struct{}, targets []roster.ItemID) bool {
	for _, t := range targets {
		if _, ok := held[t]; !ok {
			return false
		}
	}
	return true
}

func itemIDs(items []ResolvedItem) []roster.ItemID {
	ids := make([]roster.ItemID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
