package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		last     time.Time
		maxAge   time.Duration
		expected bool
	}{
		{"fresh state", time.Now(), 5 * time.Minute, false},
		{"stale state", time.Now().Add(-10 * time.Minute), 5 * time.Minute, true},
		{"just under max age", time.Now().Add(-4 * time.Minute), 5 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{LastUpdate: tt.last}
			if got := s.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_Gates(t *testing.T) {
	th := Thresholds{Warning: 20, Critical: 50}

	tests := []struct {
		name         string
		errors       int
		wantBlock    bool
		wantThrottle bool
		wantHealthy  bool
	}{
		{"no errors", 0, false, false, true},
		{"below warning", 19, false, false, true},
		{"at warning", 20, false, true, false},
		{"between", 35, false, true, false},
		{"at critical", 50, true, false, false},
		{"above critical", 80, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{ErrorsInWindow: tt.errors, thresholds: th}
			s.UpdateHealth()

			if got := s.NeedsCriticalBlock(); got != tt.wantBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.wantBlock)
			}
			if got := s.NeedsThrottling(); got != tt.wantThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.wantThrottle)
			}
			if s.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.wantHealthy)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	if got := (&State{}).TimeUntilReset(); got != 0 {
		t.Errorf("zero ResetAt: TimeUntilReset() = %v, want 0", got)
	}
	if got := (&State{ResetAt: time.Now().Add(-time.Second)}).TimeUntilReset(); got != 0 {
		t.Errorf("past ResetAt: TimeUntilReset() = %v, want 0", got)
	}
	got := (&State{ResetAt: time.Now().Add(30 * time.Second)}).TimeUntilReset()
	if got < 29*time.Second || got > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want about 30s", got)
	}
}
