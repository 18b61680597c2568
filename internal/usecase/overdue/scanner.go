package overdue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domain "loanledger/internal/domain/repayment"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a scan is skipped because another run
// (in this process or, with a Locker, in another instance) holds the slot.
var ErrAlreadyRunning = errors.New("overdue scan already running")

const lockKey = "loanledger:overdue-scan"

// Engine is the slice of the repayment engine the scanner drives.
type Engine interface {
	DueBefore(ctx context.Context, day time.Time) ([]domain.Repayment, error)
	MarkOverdue(ctx context.Context, repaymentID string) (bool, error)
}

// Locker provides a cross-instance mutex. unlock is safe to call once.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

type Report struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Scanned    int           `json:"scanned"`
	Marked     int           `json:"marked"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Err        error         `json:"-"`
	ErrMessage string        `json:"errors,omitempty"`
}

type Scanner struct {
	engine  Engine
	locker  Locker
	lockTTL time.Duration
	log     *zap.Logger
	now     func() time.Time
	running atomic.Bool
}

// NewScanner builds a scanner. locker may be nil for single-instance use.
func NewScanner(e Engine, locker Locker, lockTTL time.Duration, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &Scanner{
		engine:  e,
		locker:  locker,
		lockTTL: lockTTL,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Run marks every PENDING repayment due before today as OVERDUE. Each row is
// its own transaction; row failures are collected in Report.Err and do not
// stop the batch. The returned error is non-nil only when the scan did not
// happen at all.
func (s *Scanner) Run(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, lockKey, s.lockTTL)
		if err != nil {
			return Report{}, fmt.Errorf("acquire scan lock: %w", err)
		}
		if !ok {
			return Report{}, ErrAlreadyRunning
		}
		defer unlock()
	}

	start := s.now()
	rep := Report{StartedAt: start}

	due, err := s.engine.DueBefore(ctx, domain.DateOf(start))
	if err != nil {
		return rep, fmt.Errorf("list due repayments: %w", err)
	}
	rep.Scanned = len(due)

	var rowErrs []error
	for _, rp := range due {
		if err := ctx.Err(); err != nil {
			rowErrs = append(rowErrs, err)
			break
		}
		changed, err := s.engine.MarkOverdue(ctx, rp.RepaymentID)
		switch {
		case err != nil:
			rep.Failed++
			rowErrs = append(rowErrs, fmt.Errorf("repayment %s: %w", rp.RepaymentID, err))
			s.log.Warn("mark overdue failed", zap.String("repayment_id", rp.RepaymentID), zap.Error(err))
		case changed:
			rep.Marked++
		default:
			// settled or marked concurrently
			rep.Skipped++
		}
	}

	rep.Err = errors.Join(rowErrs...)
	if rep.Err != nil {
		rep.ErrMessage = rep.Err.Error()
	}
	rep.Duration = s.now().Sub(start)
	s.log.Info("overdue scan finished",
		zap.Int("scanned", rep.Scanned),
		zap.Int("marked", rep.Marked),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}
