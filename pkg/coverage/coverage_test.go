package coverage

import (
	"testing"

	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(from, to int) []roster.MemberID {
	out := make([]roster.MemberID, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, roster.MemberID(i))
	}
	return out
}

func set(list []roster.MemberID) map[roster.MemberID]struct{} {
	out := make(map[roster.MemberID]struct{}, len(list))
	for _, id := range list {
		out[id] = struct{}{}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	for _, bad := range []float64{0, -0.1, 1.01} {
		_, err := New(bad)
		assert.Error(t, err, "threshold %v", bad)
	}
	r, err := New(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Threshold())
}

func TestReconcile_EmptyCache(t *testing.T) {
	plan := Default().Reconcile(nil, []roster.MemberID{3, 1, 2, 1})

	assert.False(t, plan.SkipFetch)
	assert.True(t, plan.Full)
	assert.Equal(t, []roster.MemberID{3, 1, 2}, plan.IDsToFetch)
}

func TestReconcile_Boundary(t *testing.T) {
	tests := []struct {
		name     string
		cached   []roster.MemberID
		required []roster.MemberID
		wantSkip bool
	}{
		{"exactly 95 percent", ids(1, 95), ids(1, 100), true},
		{"just under 95 percent", ids(1, 1899), ids(1, 2000), false},
		{"exactly 95 percent of 2000", ids(1, 1900), ids(1, 2000), true},
		{"full coverage", ids(1, 10), ids(1, 10), true},
		{"low coverage", ids(1, 5), ids(1, 10), false},
	}

	r := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := r.Reconcile(set(tt.cached), tt.required)
			assert.Equal(t, tt.wantSkip, plan.SkipFetch)
			if tt.wantSkip {
				assert.Empty(t, plan.IDsToFetch)
			}
		})
	}
}

func TestReconcile_GapOnly(t *testing.T) {
	cached := set([]roster.MemberID{1, 2, 3, 99})
	plan := Default().Reconcile(cached, []roster.MemberID{1, 2, 3, 4, 5, 6})

	require.False(t, plan.SkipFetch)
	assert.False(t, plan.Full)
	assert.Equal(t, []roster.MemberID{4, 5, 6}, plan.IDsToFetch)
	assert.Equal(t, 3, plan.Cached)
	assert.InDelta(t, 0.5, plan.Coverage, 1e-9)
}

func TestReconcile_Idempotent(t *testing.T) {
	r := Default()
	cached := set(ids(1, 50))
	required := ids(1, 80)

	first := r.Reconcile(cached, required)
	second := r.Reconcile(cached, required)
	assert.Equal(t, first, second)
}

func TestMerge_FreshWins(t *testing.T) {
	existing := roster.Mapping{
		1:  {Picks: []roster.Pick{{Element: 1}}},
		42: {Picks: []roster.Pick{{Element: 100}}},
	}
	fresh := roster.Mapping{
		42: {Picks: []roster.Pick{{Element: 200}}},
		7:  {Picks: []roster.Pick{{Element: 7}}},
	}

	merged := Merge(existing, fresh)
	assert.Len(t, merged, 3)
	assert.Equal(t, roster.ItemID(200), merged[42].Picks[0].Element)
	assert.Equal(t, roster.ItemID(100), existing[42].Picks[0].Element, "inputs are not modified")
}

func TestMissing(t *testing.T) {
	m := roster.Mapping{1: {}, 3: {}}
	assert.Equal(t, []roster.MemberID{2, 4}, Missing(m, []roster.MemberID{4, 3, 2, 1}))
}
