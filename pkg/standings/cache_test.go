package standings

import (
	"testing"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(max int, ttl time.Duration) (*Cache, *clock) {
	clk := &clock{t: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}
	return New(Config{MaxEntries: max, TTL: ttl, Now: clk.now}, zerolog.Nop()), clk
}

func snap(g roster.GroupID) *roster.GroupSnapshot {
	return &roster.GroupSnapshot{GroupID: g, Members: []roster.Member{{Entry: 1}}}
}

func TestCache_GetPut(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	key := Key{GroupID: 1, Version: 3}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, snap(1))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, roster.GroupID(1), got.GroupID)

	_, ok = c.Get(Key{GroupID: 1, Version: 4})
	assert.False(t, ok, "versions are independent keys")

	c.Put(Key{GroupID: 2}, nil)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(5, time.Hour)
	key := Key{GroupID: 1, Version: 1}
	c.Put(key, snap(1))

	clk.t = clk.t.Add(time.Hour)
	_, ok := c.Get(key)
	assert.True(t, ok, "entry at exactly the TTL is still valid")

	clk.t = clk.t.Add(time.Second)
	_, ok = c.Get(key)
	assert.False(t, ok)

	assert.Equal(t, 1, c.Cleanup())
	assert.Zero(t, c.Len())
}

func TestCache_EvictsOldest(t *testing.T) {
	c, clk := newTestCache(2, time.Hour)

	for g := roster.GroupID(1); g <= 4; g++ {
		c.Put(Key{GroupID: g}, snap(g))
		clk.t = clk.t.Add(time.Minute)
	}
	assert.Equal(t, 4, c.Len())

	assert.Equal(t, 2, c.Cleanup())
	_, ok := c.Get(Key{GroupID: 1})
	assert.False(t, ok)
	_, ok = c.Get(Key{GroupID: 2})
	assert.False(t, ok)
	_, ok = c.Get(Key{GroupID: 4})
	assert.True(t, ok)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{}, zerolog.Nop())
	assert.Equal(t, DefaultMaxEntries, c.maxEntries)
	assert.Equal(t, DefaultTTL, c.ttl)
}
