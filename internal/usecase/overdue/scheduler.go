package overdue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler fires a Runner once a day at a fixed UTC time of day, or on a
// fixed interval when one is set.
type Scheduler struct {
	runner Runner
	hour   int
	minute int
	every  time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewDailyScheduler(r Runner, hour, minute int, log *zap.Logger) *Scheduler {
	return newScheduler(r, hour, minute, 0, log)
}

func NewIntervalScheduler(r Runner, every time.Duration, log *zap.Logger) *Scheduler {
	return newScheduler(r, 0, 0, every, log)
}

func newScheduler(r Runner, hour, minute int, every time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		runner: r,
		hour:   hour,
		minute: minute,
		every:  every,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Next returns the first firing time strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	if s.every > 0 {
		return now.Add(s.every)
	}
	return nextDaily(now, s.hour, s.minute)
}

func nextDaily(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	t := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		next := s.Next(now)
		s.log.Debug("next overdue scan scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.runner.Run(ctx); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				s.log.Info("overdue scan skipped, another run in progress")
				continue
			}
			s.log.Error("overdue scan failed", zap.Error(err))
		}
	}
}
