// Package coverage decides how much of a league must be fetched given what
// is already cached, and merges a gap fetch into the cached mapping.
package coverage

import (
	"fmt"
	"math"
	"sort"

	"github.com/KasraH/fpl-combos/pkg/roster"
)

// DefaultThreshold is the cached share of a league at or above which no fetch
// is issued.
const DefaultThreshold = 0.95

// Plan is the outcome of a reconciliation.
type Plan struct {
	SkipFetch  bool
	IDsToFetch []roster.MemberID
	// Cached is the number of required members already cached.
	Cached   int
	Required int
	// Coverage is Cached over Required, 0 when nothing is required.
	Coverage float64
	// Full is true when nothing usable was cached and every member is fetched.
	Full bool
}

// Reconciler applies a coverage threshold.
type Reconciler struct {
	// thresholdBP is the threshold in basis points so the boundary comparison
	// is exact.
	thresholdBP int64
}

// New returns a reconciler for a threshold in (0, 1].
func New(threshold float64) (*Reconciler, error) {
	if threshold <= 0 || threshold > 1 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("coverage threshold must be in (0, 1], got %v", threshold)
	}
	return &Reconciler{thresholdBP: int64(math.Round(threshold * 10000))}, nil
}

// Default returns a reconciler with DefaultThreshold.
func Default() *Reconciler {
	r, _ := New(DefaultThreshold)
	return r
}

// Threshold returns the configured threshold.
func (r *Reconciler) Threshold() float64 {
	return float64(r.thresholdBP) / 10000
}

// Reconcile compares the cached member set against the league's current
// member list. At or above the threshold nothing is fetched; below it only
// the members missing from the cache are fetched. IDsToFetch keeps the order
// of required.
func (r *Reconciler) Reconcile(cached map[roster.MemberID]struct{}, required []roster.MemberID) Plan {
	required = roster.Unique(required)
	plan := Plan{Required: len(required)}

	if len(cached) == 0 {
		plan.IDsToFetch = append([]roster.MemberID(nil), required...)
		plan.Full = true
		plan.SkipFetch = len(required) == 0
		return plan
	}
	if len(required) == 0 {
		plan.SkipFetch = true
		return plan
	}

	missing := make([]roster.MemberID, 0)
	for _, id := range required {
		if _, ok := cached[id]; ok {
			plan.Cached++
			continue
		}
		missing = append(missing, id)
	}
	plan.Coverage = float64(plan.Cached) / float64(plan.Required)

	if int64(plan.Cached)*10000 >= int64(plan.Required)*r.thresholdBP {
		plan.SkipFetch = true
		return plan
	}

	plan.IDsToFetch = missing
	return plan
}

// Merge returns a new mapping holding every entry of existing and fresh.
// Where both hold a member, the fresh entry wins. Neither input is modified.
func Merge(existing, fresh roster.Mapping) roster.Mapping {
	out := make(roster.Mapping, len(existing)+len(fresh))
	for id, r := range existing {
		out[id] = r
	}
	for id, r := range fresh {
		out[id] = r
	}
	return out
}

// Missing returns the ids of required that are absent from mapping, sorted.
func Missing(mapping roster.Mapping, required []roster.MemberID) []roster.MemberID {
	var out []roster.MemberID
	for _, id := range roster.Unique(required) {
		if _, ok := mapping[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
