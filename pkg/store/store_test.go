package store

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)}
	s, err := New(Config{Dir: t.TempDir(), Now: clock.Now}, zerolog.Nop())
	require.NoError(t, err)
	return s, clock
}

func intPtr(v int) *int { return &v }

func sampleMapping() roster.Mapping {
	chip := "bboost"
	return roster.Mapping{
		1: {Picks: []roster.Pick{{Element: 10, Position: 1, Multiplier: 2, IsCaptain: true}, {Element: 20, Position: 2}}, EntryHistory: &roster.EntryHistory{Points: 55}},
		2: {Picks: []roster.Pick{}, CurrentEventPoints: intPtr(0)},
		3: {ActiveChip: &chip},
	}
}

func sampleSnapshot() *roster.GroupSnapshot {
	return &roster.GroupSnapshot{
		GroupID: 314,
		Name:    "Office League",
		Members: []roster.Member{{Entry: 1}, {Entry: 2}, {Entry: 3}, {Entry: 4}},
	}
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	mapping := sampleMapping()

	meta, err := s.Save(314, 5, mapping, sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 3, meta.EntityCount)
	assert.Equal(t, 4, meta.TotalMembers)
	assert.Equal(t, "Office League", meta.GroupName)
	assert.True(t, s.Exists(314, 5))

	rec, err := s.Load(314, 5, true)
	require.NoError(t, err)
	assert.Equal(t, mapping, rec.Rosters)
	assert.False(t, rec.IsLegacy())
	assert.Equal(t, sampleSnapshot(), rec.Snapshot)
	assert.InDelta(t, 0.75, rec.Meta.Coverage(), 1e-9)

	// Presence semantics survive the round trip.
	assert.NotNil(t, rec.Rosters[2].Picks)
	assert.Nil(t, rec.Rosters[3].Picks)
	require.NotNil(t, rec.Rosters[2].CurrentEventPoints)
	assert.Equal(t, 0, *rec.Rosters[2].CurrentEventPoints)
}

func TestStore_LoadMiss(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Load(1, 1, true)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.False(t, s.Exists(1, 1))
}

func TestStore_Stale(t *testing.T) {
	s, clock := newTestStore(t)
	_, err := s.Save(1, 1, sampleMapping(), nil)
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Minute)
	_, err = s.Load(1, 1, false)
	require.NoError(t, err, "record within the freshness window is fresh")

	clock.now = clock.now.Add(2 * time.Minute)
	rec, err := s.Load(1, 1, false)
	require.ErrorIs(t, err, ErrCacheStale)
	require.NotNil(t, rec, "stale record is still returned")
	assert.Len(t, rec.Rosters, 3)

	rec, err = s.Load(1, 1, true)
	require.NoError(t, err)
	assert.Len(t, rec.Rosters, 3)
}

func TestStore_LegacyRecord(t *testing.T) {
	s, clock := newTestStore(t)

	f, err := os.Create(s.dataPath(77, 3))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(`{"11":{"picks":[{"element":5}]},"12":{"picks":[{"element":6}]}}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	info, err := json.Marshal(Meta{GroupID: 77, Version: 3, EntityCount: 2, CreatedAt: clock.now})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.infoPath(77, 3), info, 0o644))

	rec, err := s.Load(77, 3, true)
	require.NoError(t, err)
	assert.True(t, rec.IsLegacy())
	assert.Nil(t, rec.Snapshot)
	require.Len(t, rec.Rosters, 2)
	assert.Equal(t, roster.ItemID(6), rec.Rosters[12].Picks[0].Element)
}

func TestStore_SaveReplaces(t *testing.T) {
	s, clock := newTestStore(t)

	_, err := s.Save(1, 1, roster.Mapping{1: {}}, nil)
	require.NoError(t, err)
	clock.now = clock.now.Add(time.Minute)
	_, err = s.Save(1, 1, roster.Mapping{1: {}, 2: {}}, nil)
	require.NoError(t, err)

	rec, err := s.Load(1, 1, true)
	require.NoError(t, err)
	assert.Len(t, rec.Rosters, 2)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")
}

func TestStore_ListMostRecentFirst(t *testing.T) {
	s, clock := newTestStore(t)

	for i, g := range []roster.GroupID{10, 20, 30} {
		clock.now = clock.now.Add(time.Duration(i+1) * time.Minute)
		_, err := s.Save(g, 1, roster.Mapping{1: {}}, nil)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "league_99_gw_1_info.json"), []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0o644))

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, roster.GroupID(30), metas[0].GroupID)
	assert.Equal(t, roster.GroupID(20), metas[1].GroupID)
	assert.Equal(t, roster.GroupID(10), metas[2].GroupID)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Save(1, 1, sampleMapping(), nil)
	require.NoError(t, err)
	_, err = s.Save(2, 1, sampleMapping(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(1, 1))
	assert.False(t, s.Exists(1, 1))
	assert.ErrorIs(t, s.Delete(1, 1), ErrCacheMiss)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "keep.txt"), []byte("x"), 0o644))
	removed, err := s.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.FileExists(t, filepath.Join(s.Dir(), "keep.txt"))

	metas, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestStore_StatsAndDetails(t *testing.T) {
	s, clock := newTestStore(t)
	first := clock.now

	_, err := s.Save(1, 1, sampleMapping(), sampleSnapshot())
	require.NoError(t, err)
	clock.now = clock.now.Add(time.Hour)
	_, err = s.Save(2, 1, roster.Mapping{9: {}}, nil)
	require.NoError(t, err)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 4, st.TotalMembers)
	assert.InDelta(t, 2.0, st.AvgMembers, 1e-9)
	assert.Positive(t, st.TotalBytes)
	assert.True(t, st.Oldest.Equal(first))
	assert.True(t, st.Newest.Equal(clock.now))

	d, err := s.Details(1, 1)
	require.NoError(t, err)
	assert.Positive(t, d.DataSize)
	assert.Positive(t, d.InfoSize)
	assert.InDelta(t, 0.75, d.Coverage, 1e-9)

	_, err = s.Details(5, 5)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestStore_WriteError(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, os.Mkdir(s.dataPath(1, 1), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.dataPath(1, 1), "occupied"), []byte("x"), 0o644))

	_, err := s.Save(1, 1, sampleMapping(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCacheWrite)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "rename", we.Op)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.n))
	}
}
