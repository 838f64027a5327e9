// Package reset implements the recurring streak-reset scheduler.
//
// The scheduler fires a reset side effect once per local-midnight boundary
// in the reference timezone, indefinitely. Next-fire computation is always
// timezone-aware: the start of tomorrow is derived in the reference zone and
// converted back to an absolute instant, never a fixed 24h add, so daylight
// saving transitions are absorbed. Each fire consumes the pending
// timer and arms exactly one new one; cancellation is a single context.
package reset

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/healthrocket-labs/ignition/internal/domain"
	"github.com/healthrocket-labs/ignition/internal/infra/metrics"
)

// Margin is the fixed safety margin past midnight before firing, avoiding
// boundary rounding races in the timezone conversion.
const Margin = 60 * time.Second

// sideEffectTimeout bounds each store call from the timer callback.
const sideEffectTimeout = 30 * time.Second

// Scheduler owns the process-wide ResetSchedule singleton. Its lifecycle is
// bound to process uptime: recreated on start, torn down with the run
// context. Boundaries missed while the process was down are not replayed:
// streaks are re-derivable from raw history, and the store side effect is
// idempotent.
type Scheduler struct {
	store domain.ProgressStore
	loc   *time.Location

	mu       sync.Mutex
	nextFire time.Time

	now func() time.Time // injectable for tests
}

// New creates a scheduler over the reference timezone.
func New(store domain.ProgressStore) *Scheduler {
	return &Scheduler{
		store: store,
		loc:   domain.ReferenceLocation(),
		now:   time.Now,
	}
}

// NextFire derives the first fire instant strictly after the given time:
// the start of tomorrow in loc, plus the safety margin.
func NextFire(after time.Time, loc *time.Location, margin time.Duration) time.Time {
	local := after.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return midnight.Add(margin)
}

// Next returns the currently scheduled fire instant.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextFire
}

// Run blocks until ctx is cancelled, firing the reset side effect once per
// boundary. An explicit loop rather than a self-rescheduling callback:
// each iteration computes next-fire, suspends, fires, and repeats, so no
// timers or stack frames accumulate.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := NextFire(s.now(), s.loc, Margin)
		s.mu.Lock()
		s.nextFire = next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

// fire invokes the external reset. On failure it logs and proceeds to the
// next day's boundary rather than retrying; a missed reset degrades
// gracefully because streaks are derivable from the completion history.
func (s *Scheduler) fire(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	n, err := s.store.ResetStreaks(callCtx)
	if err != nil {
		metrics.ResetFailures.Inc()
		log.Printf("[reset] streak reset failed, next attempt at tomorrow's boundary: %v", err)
		return
	}

	metrics.ResetsFired.Inc()
	metrics.ResetLastFire.SetToCurrentTime()
	log.Printf("[reset] burn streaks reset for %d players", n)
}
