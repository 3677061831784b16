package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	budgetErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fpl_error_budget_errors",
		Help: "Failures recorded in the current error budget window",
	})

	budgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_error_budget_blocks_total",
		Help: "Total number of requests refused because the error budget is exhausted",
	})

	budgetThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpl_error_budget_throttles_total",
		Help: "Total number of requests delayed because the error budget is low",
	})
)

// Config tunes a Tracker.
type Config struct {
	Thresholds Thresholds
	// Window is how long a burst of failures is remembered.
	Window time.Duration
	// ThrottleDelay is the pause applied to each request in the warning zone.
	ThrottleDelay time.Duration
}

// DefaultConfig returns a one-minute window with a one-second throttle.
func DefaultConfig() Config {
	return Config{
		Thresholds:    DefaultThresholds(),
		Window:        time.Minute,
		ThrottleDelay: time.Second,
	}
}

// Tracker records request outcomes and gates requests.
type Tracker struct {
	redis  *redis.Client
	cfg    Config
	logger zerolog.Logger
}

// NewTracker creates a new tracker. Zero config fields take their defaults.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.Thresholds.Warning <= 0 {
		cfg.Thresholds.Warning = def.Thresholds.Warning
	}
	if cfg.Thresholds.Critical <= cfg.Thresholds.Warning {
		cfg.Thresholds.Critical = cfg.Thresholds.Warning + (def.Thresholds.Critical - def.Thresholds.Warning)
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}
	return &Tracker{
		redis:  redisClient,
		cfg:    cfg,
		logger: logger,
	}
}

// GetState reads the budget from Redis. A missing counter is a healthy state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	state := &State{thresholds: t.cfg.Thresholds}

	// Failures in the current window
	count, err := t.redis.Get(ctx, RedisKeyErrors).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get error count: %w", err)
	}
	state.ErrorsInWindow = count

	// Window reset time
	if count > 0 {
		ttl, err := t.redis.PTTL(ctx, RedisKeyErrors).Result()
		if err != nil {
			return nil, fmt.Errorf("get window ttl: %w", err)
		}
		if ttl > 0 {
			state.ResetAt = time.Now().Add(ttl)
		}
	}

	// Last update timestamp
	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if lastUpdate > 0 {
		state.LastUpdate = time.UnixMilli(lastUpdate)
	}

	state.UpdateHealth()
	return state, nil
}

// RecordFailure counts one transient failure in the current window.
func (t *Tracker) RecordFailure(ctx context.Context) error {
	count, err := t.redis.Incr(ctx, RedisKeyErrors).Result()
	if err != nil {
		return fmt.Errorf("incr error count: %w", err)
	}
	// The first failure opens the window.
	if count == 1 {
		if err := t.redis.PExpire(ctx, RedisKeyErrors, t.cfg.Window).Err(); err != nil {
			return fmt.Errorf("set window expiry: %w", err)
		}
	}
	if err := t.redis.Set(ctx, RedisKeyLastUpdate, time.Now().UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("set last update: %w", err)
	}

	// Update metrics
	budgetErrors.Set(float64(count))

	switch {
	case int(count) == t.cfg.Thresholds.Critical:
		t.logger.Error().Int64("errors_in_window", count).Msg("Error budget exhausted - requests will be blocked")
	case int(count) == t.cfg.Thresholds.Warning:
		t.logger.Warn().Int64("errors_in_window", count).Msg("Error budget low - requests will be throttled")
	default:
		t.logger.Debug().Int64("errors_in_window", count).Msg("Failure recorded")
	}
	return nil
}

// RecordSuccess notes a successful request. It does not refill the budget;
// only the window expiry does.
func (t *Tracker) RecordSuccess(ctx context.Context) error {
	if err := t.redis.Set(ctx, RedisKeyLastUpdate, time.Now().UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("set last update: %w", err)
	}
	return nil
}

// ShouldAllowRequest returns false when the budget is exhausted. In the
// warning zone it sleeps for the throttle delay (or until ctx is done) and
// then allows the request.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get error budget: %w", err)
	}

	// Critical: block request
	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("errors_in_window", state.ErrorsInWindow).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Error budget exhausted - blocking request")
		budgetBlocksTotal.Inc()
		return false, nil
	}

	// Warning: throttle request
	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("errors_in_window", state.ErrorsInWindow).
			Msg("Error budget low - throttling request")
		budgetThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.cfg.ThrottleDelay):
		}
	}

	return true, nil
}
