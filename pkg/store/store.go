// Package store persists roster mappings on disk, one record per
// (league, gameweek).
//
// A record is two files in the cache directory:
//
//	league_{g}_gw_{v}.json.gz   gzip-compressed roster mapping and league snapshot
//	league_{g}_gw_{v}_info.json  metadata (counts, timestamp)
//
// Each file is written to a temporary name and renamed into place, so readers
// see either the previous or the new content. Saves and loads for the same
// key are serialized in-process.
package store

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

// DefaultFreshness is the age after which a record counts as stale.
const DefaultFreshness = time.Hour

const (
	dataSuffix = ".json.gz"
	infoSuffix = "_info.json"
)

var recordName = regexp.MustCompile(`^league_(\d+)_gw_(\d+)(\.json\.gz|_info\.json)$`)

// Config holds the store configuration.
type Config struct {
	Dir       string
	Freshness time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store is the on-disk cache.
type Store struct {
	dir       string
	freshness time.Duration
	now       func() time.Time
	locks     *xsync.Map[string, *sync.RWMutex]
	logger    zerolog.Logger
}

// New creates the cache directory if needed and returns a store.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &Store{
		dir:       cfg.Dir,
		freshness: cfg.Freshness,
		now:       cfg.Now,
		locks:     xsync.NewMap[string, *sync.RWMutex](),
		logger:    logger.With().Str("component", "store").Logger(),
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Freshness returns the staleness threshold.
func (s *Store) Freshness() time.Duration {
	return s.freshness
}

func baseName(g roster.GroupID, v roster.Version) string {
	return fmt.Sprintf("league_%d_gw_%d", g, v)
}

func (s *Store) dataPath(g roster.GroupID, v roster.Version) string {
	return filepath.Join(s.dir, baseName(g, v)+dataSuffix)
}

func (s *Store) infoPath(g roster.GroupID, v roster.Version) string {
	return filepath.Join(s.dir, baseName(g, v)+infoSuffix)
}

func (s *Store) lock(g roster.GroupID, v roster.Version) *sync.RWMutex {
	mu, _ := s.locks.LoadOrStore(baseName(g, v), &sync.RWMutex{})
	return mu
}

// Exists reports whether both files of a record are present.
func (s *Store) Exists(g roster.GroupID, v roster.Version) bool {
	return fileExists(s.dataPath(g, v)) && fileExists(s.infoPath(g, v))
}

// Save writes the record for (g, v), replacing any previous one. snapshot may
// be nil, in which case the league total is recorded as unknown (0).
func (s *Store) Save(g roster.GroupID, v roster.Version, rosters roster.Mapping, snapshot *roster.GroupSnapshot) (Meta, error) {
	mu := s.lock(g, v)
	mu.Lock()
	defer mu.Unlock()

	if rosters == nil {
		rosters = roster.Mapping{}
	}

	meta := Meta{
		GroupID:     g,
		Version:     v,
		EntityCount: len(rosters),
		CreatedAt:   s.now().UTC(),
	}
	if snapshot != nil {
		meta.TotalMembers = len(snapshot.MemberIDs())
		meta.GroupName = snapshot.Name
	}

	size, err := writeAtomic(s.dataPath(g, v), func(w io.Writer) error {
		zw := gzip.NewWriter(w)
		if err := json.NewEncoder(zw).Encode(payload{Rosters: rosters, Snapshot: snapshot}); err != nil {
			return err
		}
		return zw.Close()
	})
	if err != nil {
		operationsTotal.WithLabelValues("save", "error").Inc()
		s.logger.Error().Err(err).Int64("group_id", int64(g)).Int("version", int(v)).Msg("Failed to write roster payload")
		return Meta{}, err
	}

	if _, err := writeAtomic(s.infoPath(g, v), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		operationsTotal.WithLabelValues("save", "error").Inc()
		s.logger.Error().Err(err).Int64("group_id", int64(g)).Int("version", int(v)).Msg("Failed to write cache metadata")
		return Meta{}, err
	}

	operationsTotal.WithLabelValues("save", "ok").Inc()
	recordBytes.Observe(float64(size))

	s.logger.Info().
		Int64("group_id", int64(g)).
		Int("version", int(v)).
		Int("members", meta.EntityCount).
		Int("total_members", meta.TotalMembers).
		Str("size", FormatSize(size)).
		Msg("Cached roster mapping")

	return meta, nil
}

// Load reads the record for (g, v). It returns ErrCacheMiss when the record
// is absent. When the record is older than the freshness window and
// allowStale is false, the record is returned together with ErrCacheStale so
// the caller can still decide to use it.
func (s *Store) Load(g roster.GroupID, v roster.Version, allowStale bool) (*Record, error) {
	mu := s.lock(g, v)
	mu.RLock()
	defer mu.RUnlock()

	meta, err := readMeta(s.infoPath(g, v))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			operationsTotal.WithLabelValues("load", "miss").Inc()
			return nil, ErrCacheMiss
		}
		operationsTotal.WithLabelValues("load", "error").Inc()
		return nil, err
	}

	f, err := os.Open(s.dataPath(g, v))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			operationsTotal.WithLabelValues("load", "miss").Inc()
			return nil, ErrCacheMiss
		}
		operationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		operationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("open payload: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		operationsTotal.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("read payload: %w", err)
	}

	p, err := decodePayload(data)
	if err != nil {
		operationsTotal.WithLabelValues("load", "error").Inc()
		return nil, err
	}

	rec := &Record{Meta: meta, Rosters: p.Rosters, Snapshot: p.Snapshot}

	logEvent := s.logger.Debug()
	if rec.IsLegacy() {
		logEvent = s.logger.Info()
	}
	logEvent.
		Int64("group_id", int64(g)).
		Int("version", int(v)).
		Int("members", len(rec.Rosters)).
		Int("total_members", meta.TotalMembers).
		Bool("legacy", rec.IsLegacy()).
		Msg("Loaded cached roster mapping")

	if age := meta.Age(s.now()); age > s.freshness {
		s.logger.Warn().
			Int64("group_id", int64(g)).
			Int("version", int(v)).
			Dur("age", age).
			Bool("allow_stale", allowStale).
			Msg("Cached record is older than the freshness window")
		if !allowStale {
			operationsTotal.WithLabelValues("load", "stale").Inc()
			return rec, ErrCacheStale
		}
	}

	operationsTotal.WithLabelValues("load", "hit").Inc()
	return rec, nil
}

// List returns the metadata of every record, most recent first. Unreadable
// metadata files are skipped.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	metas := make([]Meta, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), infoSuffix) || !recordName.MatchString(e.Name()) {
			continue
		}
		meta, err := readMeta(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Debug().Err(err).Str("file", e.Name()).Msg("Skipping unreadable cache metadata")
			continue
		}
		metas = append(metas, meta)
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Delete removes the record for (g, v). It returns ErrCacheMiss when neither
// file existed.
func (s *Store) Delete(g roster.GroupID, v roster.Version) error {
	mu := s.lock(g, v)
	mu.Lock()
	defer mu.Unlock()

	removed := 0
	for _, path := range []string{s.dataPath(g, v), s.infoPath(g, v)} {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			operationsTotal.WithLabelValues("delete", "error").Inc()
			return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
	}
	if removed == 0 {
		operationsTotal.WithLabelValues("delete", "miss").Inc()
		return ErrCacheMiss
	}

	operationsTotal.WithLabelValues("delete", "ok").Inc()
	s.logger.Info().Int64("group_id", int64(g)).Int("version", int(v)).Msg("Deleted cache record")
	return nil
}

// ClearAll removes every record file and returns how many files were removed.
func (s *Store) ClearAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !recordName.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			operationsTotal.WithLabelValues("clear", "error").Inc()
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}

	operationsTotal.WithLabelValues("clear", "ok").Inc()
	s.logger.Info().Int("files", removed).Msg("Cleared cache directory")
	return removed, nil
}

// Stats summarizes the cache directory.
type Stats struct {
	Records      int
	TotalMembers int
	TotalBytes   int64
	AvgMembers   float64
	Oldest       time.Time
	Newest       time.Time
}

// Stats scans every record's metadata and file sizes.
func (s *Store) Stats() (Stats, error) {
	metas, err := s.List()
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	for _, m := range metas {
		st.Records++
		st.TotalMembers += m.EntityCount
		st.TotalBytes += fileSize(s.dataPath(m.GroupID, m.Version)) + fileSize(s.infoPath(m.GroupID, m.Version))
		if st.Oldest.IsZero() || m.CreatedAt.Before(st.Oldest) {
			st.Oldest = m.CreatedAt
		}
		if m.CreatedAt.After(st.Newest) {
			st.Newest = m.CreatedAt
		}
	}
	if st.Records > 0 {
		st.AvgMembers = float64(st.TotalMembers) / float64(st.Records)
	}
	return st, nil
}

// Details is one record's metadata plus its on-disk footprint.
type Details struct {
	Meta     Meta
	DataSize int64
	InfoSize int64
	Coverage float64
}

// Details returns the metadata and file sizes for (g, v).
func (s *Store) Details(g roster.GroupID, v roster.Version) (Details, error) {
	meta, err := readMeta(s.infoPath(g, v))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Details{}, ErrCacheMiss
		}
		return Details{}, err
	}
	return Details{
		Meta:     meta,
		DataSize: fileSize(s.dataPath(g, v)),
		InfoSize: fileSize(s.infoPath(g, v)),
		Coverage: meta.Coverage(),
	}, nil
}

// FormatSize renders a byte count as B, KB, MB or GB.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n)
	for _, suffix := range []string{"KB", "MB", "GB"} {
		value /= unit
		if value < unit || suffix == "GB" {
			return fmt.Sprintf("%.1f %s", value, suffix)
		}
	}
	return fmt.Sprintf("%d B", n)
}

// writeAtomic writes via a temporary file in the target directory and renames
// it into place. It returns the number of bytes written.
func writeAtomic(path string, write func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, &WriteError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return 0, &WriteError{Op: "encode", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, &WriteError{Op: "sync", Path: path, Err: err}
	}
	info, err := tmp.Stat()
	if err != nil {
		cleanup()
		return 0, &WriteError{Op: "stat", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, &WriteError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, &WriteError{Op: "rename", Path: path, Err: err}
	}
	return info.Size(), nil
}

func readMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("decode metadata %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
