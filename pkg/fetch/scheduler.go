// Package fetch pulls member rosters from the provider in bounded-concurrency
// batches. Transient failures are retried per member; members that still fail
// are recorded and left out of the result rather than failing the run.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KasraH/fpl-combos/pkg/fpl"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

// DefaultMaxAttempts is the per-member attempt ceiling, first try included.
const DefaultMaxAttempts = 3

// RosterSource fetches a single member's roster. *fpl.Client implements it.
type RosterSource interface {
	MemberRoster(ctx context.Context, memberID roster.MemberID, version roster.Version) (*roster.Roster, error)
}

// Progress is emitted after every batch.
type Progress struct {
	Batch     int
	Batches   int
	BatchSize int

	Attempted int
	Succeeded int
	Total     int

	BatchDuration time.Duration
	Elapsed       time.Duration
	// AvgPerSuccess is elapsed time divided by successes so far.
	AvgPerSuccess time.Duration
	// ETA is the remaining member count times AvgPerSuccess.
	ETA time.Duration
}

// SuccessRate is successes over members attempted so far, in [0, 1].
func (p Progress) SuccessRate() float64 {
	if p.Attempted == 0 {
		return 0
	}
	return float64(p.Succeeded) / float64(p.Attempted)
}

// Result is the outcome of a run. Rosters holds only members that succeeded.
type Result struct {
	Rosters   roster.Mapping
	Failures  []Failure
	Requested int
	Attempted int
	Duration  time.Duration
}

// SuccessRate is successes over members attempted, in [0, 1].
func (r *Result) SuccessRate() float64 {
	if r == nil || r.Attempted == 0 {
		return 0
	}
	return float64(len(r.Rosters)) / float64(r.Attempted)
}

// Summary renders "X/Y succeeded" for operators.
func (r *Result) Summary() string {
	if r == nil {
		return "0/0 succeeded"
	}
	return fmt.Sprintf("%d/%d succeeded (%.1f%%)", len(r.Rosters), r.Requested, r.SuccessRate()*100)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithProgress registers a callback invoked after every batch.
func WithProgress(fn func(Progress)) Option {
	return func(s *Scheduler) {
		s.onProgress = fn
	}
}

// WithMaxAttempts overrides the per-member attempt ceiling.
func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Scheduler runs fetches. It is safe to reuse across runs but not to run
// concurrently with itself for the same member set.
type Scheduler struct {
	source      RosterSource
	profile     Profile
	maxAttempts int
	onProgress  func(Progress)
	logger      zerolog.Logger
}

// NewScheduler creates a scheduler. An invalid profile falls back to the
// conservative preset.
func NewScheduler(source RosterSource, profile Profile, logger zerolog.Logger, opts ...Option) *Scheduler {
	if err := profile.Validate(); err != nil {
		logger.Warn().Err(err).Msg("Invalid fetch profile - using conservative preset")
		profile = DefaultProfile()
	}

	s := &Scheduler{
		source:      source,
		profile:     profile,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.With().Str("component", "fetch").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the active profile.
func (s *Scheduler) Profile() Profile {
	return s.profile
}

// Fetch retrieves the rosters of ids for one version. Duplicate ids collapse.
//
// When ctx is cancelled no further members are submitted and the partial
// result is returned with ctx.Err(). Members interrupted mid-fetch are left
// out of both Rosters and Failures.
// When at least one member was requested and none succeeded the result is
// returned with ErrFetchRunFailed.
func (s *Scheduler) Fetch(ctx context.Context, ids []roster.MemberID, version roster.Version) (*Result, error) {
	start := time.Now()
	ids = roster.Unique(ids)

	result := &Result{
		Rosters:   make(roster.Mapping, len(ids)),
		Requested: len(ids),
	}
	if len(ids) == 0 {
		return result, nil
	}

	batches := partition(ids, s.profile.BatchSize)

	s.logger.Info().
		Int("members", len(ids)).
		Int("batches", len(batches)).
		Int("version", int(version)).
		Str("profile", s.profile.Name).
		Int("workers", s.profile.Workers).
		Msg("Starting roster fetch")

	acc := xsync.NewMap[roster.MemberID, roster.Roster]()
	var (
		failuresMu sync.Mutex
		failures   []Failure
		attempted  atomic.Int64
	)

	// Queue bounded to the worker count so Submit blocks once the pool is
	// saturated.
	pool := pond.NewPool(s.profile.Workers, pond.WithQueueSize(s.profile.Workers))
	defer pool.StopAndWait()

	var runErr error
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		batchStart := time.Now()
		group := pool.NewGroupContext(ctx)
		groupCtx := group.Context()

		for _, id := range batch {
			if groupCtx.Err() != nil {
				break
			}
			id := id
			group.Submit(func() {
				if groupCtx.Err() != nil {
					return
				}
				attempted.Add(1)
				r, attempts, err := s.fetchMember(groupCtx, id, version)
				if err != nil && groupCtx.Err() != nil {
					return
				}
				if err != nil {
					membersTotal.WithLabelValues("failure").Inc()
					failuresMu.Lock()
					failures = append(failures, Failure{MemberID: id, Attempts: attempts, Err: err})
					failuresMu.Unlock()
					return
				}
				membersTotal.WithLabelValues("success").Inc()
				acc.Store(id, *r)
			})
		}

		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
			s.logger.Warn().Err(err).Int("batch", i+1).Msg("Batch tasks failed")
		}
		result.Attempted = int(attempted.Load())

		elapsed := time.Since(batchStart)
		batchDuration.Observe(elapsed.Seconds())
		s.reportProgress(i+1, len(batches), len(batch), result.Attempted, acc.Size(), len(ids), elapsed, time.Since(start))

		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if i < len(batches)-1 && s.profile.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			case <-time.After(s.profile.BatchDelay):
			}
			if runErr != nil {
				break
			}
		}
	}

	acc.Range(func(id roster.MemberID, r roster.Roster) bool {
		result.Rosters[id] = r
		return true
	})
	sort.Slice(failures, func(i, j int) bool { return failures[i].MemberID < failures[j].MemberID })
	result.Failures = failures
	result.Duration = time.Since(start)

	if runErr != nil {
		runsTotal.WithLabelValues("cancelled").Inc()
		s.logger.Warn().
			Err(runErr).
			Str("summary", result.Summary()).
			Msg("Roster fetch cancelled - returning partial result")
		return result, runErr
	}

	if len(result.Rosters) == 0 {
		runsTotal.WithLabelValues("failed").Inc()
		s.logger.Error().
			Int("requested", result.Requested).
			Int("failures", len(result.Failures)).
			Msg("Roster fetch failed - no member succeeded")
		return result, fmt.Errorf("%w (0/%d)", ErrFetchRunFailed, result.Requested)
	}

	runsTotal.WithLabelValues("success").Inc()
	s.logger.Info().
		Str("summary", result.Summary()).
		Int("failures", len(result.Failures)).
		Dur("duration", result.Duration).
		Msg("Roster fetch complete")

	return result, nil
}

// fetchMember applies the retry ladder: up to maxAttempts tries, pausing half
// the retry delay before the second and the full delay before later ones.
func (s *Scheduler) fetchMember(ctx context.Context, id roster.MemberID, version roster.Version) (*roster.Roster, int, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		r, err := s.source.MemberRoster(ctx, id, version)
		if err == nil && r == nil {
			err = fpl.ErrEmptyResponse
		}
		if err == nil {
			if attempt > 1 {
				s.logger.Debug().
					Int64("member_id", int64(id)).
					Int("attempt", attempt).
					Msg("Member fetch succeeded after retry")
			}
			return r, attempt, nil
		}

		lastErr = err
		// Every failure is retried unless the caller gave up.
		if ctx.Err() != nil {
			return nil, attempt, err
		}
		if attempt >= s.maxAttempts {
			break
		}

		pause := s.retryPause(attempt)
		retriesTotal.Inc()
		s.logger.Debug().
			Err(err).
			Int64("member_id", int64(id)).
			Int("attempt", attempt).
			Bool("transient", fpl.IsTransient(err)).
			Dur("backoff", pause).
			Msg("Retrying member fetch")

		if pause > 0 {
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(pause):
			}
		}
	}

	s.logger.Debug().
		Err(lastErr).
		Int64("member_id", int64(id)).
		Int("attempts", s.maxAttempts).
		Msg("Member fetch attempts exhausted")

	return nil, s.maxAttempts, fmt.Errorf("%w after %d attempts: %v", ErrFetchExhausted, s.maxAttempts, lastErr)
}

func (s *Scheduler) retryPause(attempt int) time.Duration {
	if attempt <= 1 {
		return s.profile.RetryDelay / 2
	}
	return s.profile.RetryDelay
}

func (s *Scheduler) reportProgress(batch, batches, size, attempted, succeeded, total int, batchElapsed, elapsed time.Duration) {
	p := Progress{
		Batch:         batch,
		Batches:       batches,
		BatchSize:     size,
		Attempted:     attempted,
		Succeeded:     succeeded,
		Total:         total,
		BatchDuration: batchElapsed,
		Elapsed:       elapsed,
	}
	if succeeded > 0 {
		p.AvgPerSuccess = elapsed / time.Duration(succeeded)
		p.ETA = time.Duration(total-attempted) * p.AvgPerSuccess
	}

	s.logger.Info().
		Int("batch", batch).
		Int("batches", batches).
		Int("batch_size", size).
		Int("succeeded", succeeded).
		Int("attempted", attempted).
		Float64("success_rate", p.SuccessRate()).
		Dur("batch_duration", batchElapsed).
		Dur("avg_per_success", p.AvgPerSuccess).
		Dur("eta", p.ETA).
		Msg("Batch complete")

	if s.onProgress != nil {
		s.onProgress(p)
	}
}

// partition splits ids into consecutive chunks of at most size, preserving order.
func partition(ids []roster.MemberID, size int) [][]roster.MemberID {
	if size <= 0 {
		size = len(ids)
	}
	out := make([][]roster.MemberID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
