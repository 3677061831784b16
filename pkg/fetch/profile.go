package fetch

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Preset names.
const (
	ProfileConservative = "conservative"
	ProfileModerate     = "moderate"
	ProfileAggressive   = "aggressive"
	ProfileMaximum      = "maximum"
	ProfileCustom       = "custom"
)

// Profile governs how hard a fetch run leans on the provider.
type Profile struct {
	Name string

	// BatchSize is the number of members submitted per batch.
	BatchSize int
	// Workers is the number of fetches in flight at once.
	Workers int
	// BatchDelay is slept between batches, never after the last one.
	BatchDelay time.Duration
	// RetryDelay is the full pause between retry attempts; the first retry
	// waits half of it.
	RetryDelay time.Duration
}

var presets = map[string]Profile{
	ProfileConservative: {Name: ProfileConservative, BatchSize: 200, Workers: 3, BatchDelay: time.Second, RetryDelay: time.Second},
	ProfileModerate:     {Name: ProfileModerate, BatchSize: 500, Workers: 8, BatchDelay: 500 * time.Millisecond, RetryDelay: 500 * time.Millisecond},
	ProfileAggressive:   {Name: ProfileAggressive, BatchSize: 1000, Workers: 15, BatchDelay: 100 * time.Millisecond, RetryDelay: 200 * time.Millisecond},
	ProfileMaximum:      {Name: ProfileMaximum, BatchSize: 2000, Workers: 25, BatchDelay: 0, RetryDelay: 100 * time.Millisecond},
}

// DefaultProfile returns the conservative preset.
func DefaultProfile() Profile {
	return presets[ProfileConservative]
}

// ProfileByName looks up a preset, case-insensitively.
func ProfileByName(name string) (Profile, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown fetch profile %q (valid: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames returns the preset names in ascending aggressiveness.
func ProfileNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return presets[names[i]].Workers < presets[names[j]].Workers
	})
	return names
}

// CustomProfile builds a profile from explicit sizes with one-second delays.
func CustomProfile(batchSize, workers int) (Profile, error) {
	p := Profile{
		Name:       ProfileCustom,
		BatchSize:  batchSize,
		Workers:    workers,
		BatchDelay: time.Second,
		RetryDelay: time.Second,
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate reports whether the profile can drive a run.
func (p Profile) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", p.BatchSize)
	}
	if p.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", p.Workers)
	}
	if p.BatchDelay < 0 || p.RetryDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// String renders the profile for logs and CLI output.
func (p Profile) String() string {
	return fmt.Sprintf("%s (batch=%d workers=%d delay=%s retry=%s)",
		p.Name, p.BatchSize, p.Workers, p.BatchDelay, p.RetryDelay)
}
