package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper marks stale appointments as missed.
type Sweeper interface {
	MarkPastAppointmentsMissed(ctx context.Context) (int64, error)
}

// Runner triggers the daily missed-appointment sweep at a fixed wall-clock
// time.
type Runner struct {
	svc  Sweeper
	hour int
	min  int
	log  zerolog.Logger
	now  func() time.Time
}

// NewRunner creates a Runner that fires daily at the given "HH:MM" local time.
func NewRunner(svc Sweeper, at string, log zerolog.Logger) (*Runner, error) {
	var hour, min int
	if _, err := fmt.Sscanf(at, "%d:%d", &hour, &min); err != nil {
		return nil, fmt.Errorf("parse sweep time %q: %w", at, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return nil, fmt.Errorf("sweep time %q out of range", at)
	}
	return &Runner{
		svc:  svc,
		hour: hour,
		min:  min,
		log:  log,
		now:  time.Now,
	}, nil
}

// Start runs the sweep loop until ctx is canceled. It blocks, so call it in a
// goroutine.
func (r *Runner) Start(ctx context.Context) {
	r.log.Info().
		Str("at", fmt.Sprintf("%02d:%02d", r.hour, r.min)).
		Msg("sweep runner started")

	for {
		next := r.nextFire(r.now())
		timer := time.NewTimer(next.Sub(r.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Info().Msg("sweep runner stopped")
			return
		case <-timer.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass. Errors are logged, not returned, so a
// failed pass never stops the loop.
func (r *Runner) RunOnce(ctx context.Context) {
	count, err := r.svc.MarkPastAppointmentsMissed(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("missed-appointment sweep failed")
		return
	}
	r.log.Info().Int64("marked_missed", count).Msg("missed-appointment sweep complete")
}

// nextFire returns the next wall-clock instant at or after now when the sweep
// should run.
func (r *Runner) nextFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), r.hour, r.min, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}
