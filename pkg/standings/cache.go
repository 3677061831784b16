// Package standings holds recently used league snapshots in memory so result
// rows can be enriched without refetching standings. The cache is bounded in
// size and age and is owned by whoever constructs it.
package standings

import (
	"sort"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

// Defaults match a day of retention for a handful of leagues.
const (
	DefaultMaxEntries = 5
	DefaultTTL        = 24 * time.Hour
)

// Key identifies a cached snapshot.
type Key struct {
	GroupID roster.GroupID
	Version roster.Version
}

type entry struct {
	snapshot *roster.GroupSnapshot
	storedAt time.Time
}

// Config holds the cache bounds.
type Config struct {
	MaxEntries int
	TTL        time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	entries    *xsync.Map[Key, entry]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates a cache. Non-positive bounds take their defaults.
func New(cfg Config, logger zerolog.Logger) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		entries:    xsync.NewMap[Key, entry](),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        cfg.Now,
		logger:     logger.With().Str("component", "standings-cache").Logger(),
	}
}

// Get returns the snapshot for key if present and not expired.
func (c *Cache) Get(key Key) (*roster.GroupSnapshot, bool) {
	e, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		return nil, false
	}
	return e.snapshot, true
}

// Put stores a snapshot, replacing any previous one for key. A nil snapshot
// is ignored.
func (c *Cache) Put(key Key, snap *roster.GroupSnapshot) {
	if snap == nil {
		return
	}
	c.entries.Store(key, entry{snapshot: snap, storedAt: c.now()})
	c.logger.Debug().
		Int64("group_id", int64(key.GroupID)).
		Int("version", int(key.Version)).
		Int("members", len(snap.Members)).
		Msg("Cached league standings")
}

// Delete drops key.
func (c *Cache) Delete(key Key) {
	c.entries.Delete(key)
}

// Len returns the number of entries, expired ones included until Cleanup.
func (c *Cache) Len() int {
	return c.entries.Size()
}

// Cleanup removes expired entries, then evicts the oldest entries until at
// most MaxEntries remain. It returns the number removed.
func (c *Cache) Cleanup() int {
	type aged struct {
		key      Key
		storedAt time.Time
	}

	var live []aged
	removed := 0
	c.entries.Range(func(k Key, e entry) bool {
		if c.expired(e) {
			c.entries.Delete(k)
			removed++
			return true
		}
		live = append(live, aged{key: k, storedAt: e.storedAt})
		return true
	})

	if len(live) > c.maxEntries {
		sort.Slice(live, func(i, j int) bool { return live[i].storedAt.After(live[j].storedAt) })
		for _, a := range live[c.maxEntries:] {
			c.entries.Delete(a.key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Int("remaining", c.entries.Size()).Msg("Cleaned up standings cache")
	}
	return removed
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.storedAt) > c.ttl
}
