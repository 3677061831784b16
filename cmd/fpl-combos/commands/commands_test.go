package commands

import (
	"bytes"
	"testing"

	"github.com/KasraH/fpl-combos/internal/testutil"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bootstrapBody = `{
	"elements": [
		{"id": 10, "first_name": "Mohamed", "second_name": "Salah", "web_name": "M.Salah", "team": 1, "element_type": 3},
		{"id": 20, "first_name": "Erling", "second_name": "Haaland", "web_name": "Haaland", "team": 2, "element_type": 4}
	],
	"teams": [{"id": 1, "name": "Liverpool"}, {"id": 2, "name": "Man City"}],
	"element_types": [{"id": 3, "singular_name": "Midfielder"}, {"id": 4, "singular_name": "Forward"}],
	"events": [{"id": 9, "is_current": true}]
}`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func setupMockAPI(t *testing.T) *testutil.MockFPL {
	t.Helper()
	mock := testutil.NewMockFPL()
	t.Cleanup(mock.Close)

	mock.SetBootstrap(bootstrapBody)
	mock.SetLeague(55, "Five-a-side", []roster.Member{
		{Entry: 1, PlayerName: "Ann", EntryName: "Ann FC", Total: 90},
		{Entry: 2, PlayerName: "Bob", EntryName: "Bob FC", Total: 80},
	}, 50)
	mock.SetRoster(1, 9, roster.Roster{Picks: []roster.Pick{{Element: 10}, {Element: 20}}})
	mock.SetRoster(2, 9, roster.Roster{Picks: []roster.Pick{{Element: 20}}})

	t.Setenv("FPL_API_BASE_URL", mock.URL())
	t.Setenv("FPL_PAGE_PAUSE", "0s")
	t.Setenv("FPL_LOG_LEVEL", "error")
	return mock
}

func TestRootListsSubcommands(t *testing.T) {
	out, _, err := run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "load", "query", "search", "cache"} {
		assert.Contains(t, out, name)
	}
}

func TestInvalidThresholdFlag(t *testing.T) {
	_, errOut, err := run(t, "--threshold", "1.5", "cache", "list", "--cache-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, "Invalid configuration", err.Error())
	assert.Contains(t, errOut, "FPL_COVERAGE_THRESHOLD")
}

func TestLoadAndQuery(t *testing.T) {
	mock := setupMockAPI(t)
	dir := t.TempDir()

	out, errOut, err := run(t, "load", "55", "--cache-dir", dir, "--batch-size", "5", "--workers", "2")
	require.NoError(t, err, errOut)
	assert.Contains(t, out, "Successfully loaded league 55")
	assert.Contains(t, out, "Batch 1/1")

	out, errOut, err = run(t, "query", "55", "Salah", "Haaland", "--cache-dir", dir)
	require.NoError(t, err, errOut)
	assert.Contains(t, out, "from cache")
	assert.Contains(t, out, "M.Salah + Haaland")
	assert.Contains(t, out, "1 of 2 managers (50.00%)")
	assert.Equal(t, 1, mock.PathCount(testutil.RosterPath(1, 9)), "query reuses the cached rosters")
}

func TestQueryUnknownPlayer(t *testing.T) {
	setupMockAPI(t)

	_, errOut, err := run(t, "query", "55", "Pele", "--cache-dir", t.TempDir(), "--batch-size", "2", "--workers", "2")
	require.Error(t, err)
	assert.Equal(t, "Player not found", err.Error())
	assert.Contains(t, errOut, "fpl-combos search Pele")
}

func TestLoadInvalidArgs(t *testing.T) {
	setupMockAPI(t)

	_, _, err := run(t, "load", "abc", "--cache-dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, "Invalid league id", err.Error())

	_, _, err = run(t, "load", "55", "--cache-dir", t.TempDir(), "--batch-size", "5")
	require.Error(t, err)
	assert.Equal(t, "Invalid fetch settings", err.Error())
}

func TestSearch(t *testing.T) {
	setupMockAPI(t)

	out, _, err := run(t, "search", "haal", "--cache-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Erling Haaland")
	assert.Contains(t, out, "Man City")
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FPL_LOG_LEVEL", "error")

	st, err := store.New(store.Config{Dir: dir}, zerolog.Nop())
	require.NoError(t, err)
	_, err = st.Save(55, 9, roster.Mapping{1: {Picks: []roster.Pick{{Element: 10}}}},
		&roster.GroupSnapshot{GroupID: 55, Name: "Five-a-side", Members: []roster.Member{{Entry: 1}, {Entry: 2}}})
	require.NoError(t, err)

	out, _, err := run(t, "cache", "list", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Five-a-side")
	assert.Contains(t, out, "1/2")

	out, _, err = run(t, "cache", "show", "55", "9", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "League 55, gameweek 9")
	assert.Contains(t, out, "50.0% cached")

	out, _, err = run(t, "cache", "stats", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Records:        1")

	_, _, err = run(t, "cache", "show", "55", "10", "--cache-dir", dir)
	require.Error(t, err)
	assert.Equal(t, "Not cached", err.Error())

	_, _, err = run(t, "cache", "clear", "--cache-dir", dir)
	require.Error(t, err)

	out, _, err = run(t, "cache", "delete", "55", "9", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted league 55 gameweek 9")
	assert.False(t, st.Exists(55, 9))

	out, _, err = run(t, "cache", "clear", "--yes", "--cache-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 cached records")
}
