// Package scheduler drives periodic jobs aligned to wall-clock boundaries,
// so hourly jobs fire at :00 and half-hourly jobs at :00/:30 regardless of
// when the process started.
package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// TickFunc is invoked at every aligned boundary
type TickFunc func(ctx context.Context) error

// Scheduler runs a single job at a fixed wall-clock-aligned interval
type Scheduler struct {
	name     string
	interval time.Duration
	logger   *log.Entry
}

// New creates a scheduler for the named job
func New(name string, interval time.Duration) *Scheduler {
	if interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		logger:   log.WithFields(log.Fields{"component": "scheduler", "job": name}),
	}
}

// Run blocks, invoking tick at each boundary until the context is cancelled.
// Tick errors are logged and the next boundary is awaited; a tick that runs
// past its boundary causes the scheduler to re-align rather than drift.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	for {
		next := NextBoundary(time.Now().UTC(), s.interval)
		s.logger.WithField("next", next).Debug("Waiting for next boundary")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := tick(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled update failed")
		}
	}
}

// NextBoundary returns the first instant strictly after now that is a whole
// multiple of interval on the wall clock.
func NextBoundary(now time.Time, interval time.Duration) time.Time {
	boundary := now.Truncate(interval)
	if !boundary.After(now) {
		boundary = boundary.Add(interval)
	}
	return boundary
}
