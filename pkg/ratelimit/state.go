// Package ratelimit tracks a shared budget of recent transient failures
// against the remote provider and gates requests when that budget runs low.
// The provider publishes no rate-limit headers, so the budget is derived from
// observed outcomes: every failed request increments a counter in Redis that
// resets when its window expires. All processes pointed at the same Redis
// share the budget.
package ratelimit

import (
	"time"
)

// Redis keys for budget state.
const (
	RedisKeyErrors     = "fpl:budget:errors"
	RedisKeyLastUpdate = "fpl:budget:last_update"
)

// Thresholds holds the error counts at which requests are throttled or blocked.
type Thresholds struct {
	// Warning throttles each request by the tracker's throttle delay.
	Warning int
	// Critical blocks requests until the window resets.
	Critical int
}

// DefaultThresholds returns thresholds suited to the provider's tolerance.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:  20,
		Critical: 50,
	}
}

// State is the current error budget as stored in Redis.
type State struct {
	// ErrorsInWindow is the number of failures recorded in the current window.
	ErrorsInWindow int `json:"errors_in_window"`

	// ResetAt is when the current window expires. Zero when no window is open.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when an outcome was last recorded.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while ErrorsInWindow is below the warning threshold.
	IsHealthy bool `json:"is_healthy"`

	thresholds Thresholds
}

// IsStale returns true if no outcome has been recorded within maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be refused.
func (s *State) NeedsCriticalBlock() bool {
	return s.ErrorsInWindow >= s.thresholds.Critical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.ErrorsInWindow >= s.thresholds.Warning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy from ErrorsInWindow.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.ErrorsInWindow < s.thresholds.Warning
}
