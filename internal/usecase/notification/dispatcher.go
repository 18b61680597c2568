package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loanledger/internal/domain/contact"
	"loanledger/internal/domain/errs"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/domain/uow"
	"loanledger/pkg/worker"

	"go.uber.org/zap"
)

type Config struct {
	Workers        int
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	BaseBackoff    time.Duration
	AttemptTimeout time.Duration
	// Lease is how long a claimed intent stays invisible to other pollers
	// before it is considered abandoned.
	Lease time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = 2 * time.Minute
	}
	return c
}

type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Delivered  int64 `json:"delivered"`
	Failed     int64 `json:"failed"`
}

// Dispatcher drains the notification outbox. Independent intents are
// delivered in parallel on a worker pool; a single intent is only ever
// handled by one goroutine at a time.
type Dispatcher struct {
	uow      uow.UnitOfWork
	intents  outbox.Repository
	channel  Channel
	renderer *Renderer
	dedupe   Deduper
	pool     *worker.Pool
	cfg      Config
	log      *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	wake     chan struct{}
	inflight sync.Map
}

func NewDispatcher(tx uow.UnitOfWork, intents outbox.Repository, ch Channel, r *Renderer, cfg Config, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		uow:      tx,
		intents:  intents,
		channel:  ch,
		renderer: r,
		cfg:      cfg.withDefaults(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepCtx,
		wake:     make(chan struct{}, 1),
	}
}

func (d *Dispatcher) WithDeduper(dd Deduper) *Dispatcher {
	d.dedupe = dd
	return d
}

// WithPool runs deliveries on p. Without a pool they run on the caller.
func (d *Dispatcher) WithPool(p *worker.Pool) *Dispatcher {
	d.pool = p
	return d
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// WithSleep replaces the backoff wait; used by tests to observe delays.
func (d *Dispatcher) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Dispatcher {
	d.sleep = sleep
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wake asks the poll loop to look for work now. It never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Backoff is the wait after failed attempt n (1-based): base·2^(n-1).
func (d *Dispatcher) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return d.cfg.BaseBackoff << (n - 1)
}

// Run polls until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := d.dispatch(ctx, false); err != nil && ctx.Err() == nil {
			d.log.Error("outbox poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// DispatchOnce claims one batch of due intents and delivers them, returning
// once every claimed intent reached delivered, failed or was released.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	return d.dispatch(ctx, true)
}

func (d *Dispatcher) dispatch(ctx context.Context, wait bool) (int, error) {
	claimed, err := d.claim(ctx)
	if err != nil {
		return 0, err
	}

	var wg sync.WaitGroup
	n := 0
	for i := range claimed {
		it := claimed[i]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer d.inflight.Delete(it.ID)
			d.Deliver(ctx, &it)
		}
		if d.pool == nil {
			task()
			n++
			continue
		}
		if err := d.pool.Submit(ctx, task); err != nil {
			// never started; the lease expires and another poll picks it up
			wg.Done()
			d.inflight.Delete(it.ID)
			d.log.Warn("submit delivery failed", zap.Uint64("intent_id", it.ID), zap.Error(err))
			continue
		}
		n++
	}
	if wait {
		wg.Wait()
	}
	return n, nil
}

func (d *Dispatcher) claim(ctx context.Context) ([]outbox.Intent, error) {
	now := d.now()
	var claimed []outbox.Intent
	err := d.uow.WithinTx(ctx, func(r uow.Repos) error {
		rows, err := r.Outbox.ListClaimable(ctx, now, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		for i := range rows {
			if _, busy := d.inflight.LoadOrStore(rows[i].ID, struct{}{}); busy {
				continue
			}
			rows[i].Claim(now, d.cfg.Lease)
			if err := r.Outbox.Save(ctx, &rows[i]); err != nil {
				d.inflight.Delete(rows[i].ID)
				return err
			}
			claimed = append(claimed, rows[i])
		}
		return nil
	})
	if err != nil {
		for _, it := range claimed {
			d.inflight.Delete(it.ID)
		}
		return nil, errs.FromStore(err, nil)
	}
	return claimed, nil
}

// Deliver runs the retry loop for one claimed intent and persists every
// attempt. The ledger is never touched here.
func (d *Dispatcher) Deliver(ctx context.Context, it *outbox.Intent) {
	log := d.log.With(
		zap.Uint64("intent_id", it.ID),
		zap.String("event_key", it.EventKey),
		zap.String("kind", string(it.Kind)),
	)
	// state writes must land even while shutting down
	store := context.WithoutCancel(ctx)

	msg, err := d.prepare(it)
	if err != nil {
		d.fail(store, it, err, log)
		return
	}

	if d.dedupe != nil {
		seen, err := d.dedupe.Seen(ctx, it.EventKey)
		if err != nil {
			log.Warn("dedupe lookup failed", zap.Error(err))
		} else if seen {
			log.Info("already delivered, skipping send")
			d.deliver(store, it, log)
			return
		}
	}

	for {
		it.Attempts++
		err := d.attempt(ctx, msg)
		if err == nil {
			if d.dedupe != nil {
				if err := d.dedupe.Mark(store, it.EventKey); err != nil {
					log.Warn("dedupe mark failed", zap.Error(err))
				}
			}
			d.deliver(store, it, log)
			return
		}
		it.LastError = err.Error()
		log.Warn("delivery attempt failed", zap.Int("attempt", it.Attempts), zap.Error(err))

		if ctx.Err() != nil {
			d.release(store, it, d.now(), log)
			return
		}
		if !Retryable(err) || it.Attempts >= d.cfg.MaxAttempts {
			d.fail(store, it, err, log)
			return
		}

		wait := d.Backoff(it.Attempts)
		now := d.now()
		it.NextAttemptAt = now.Add(wait)
		lease := now.Add(wait + d.cfg.Lease)
		it.LeaseUntil = &lease
		d.save(store, it, log)

		if err := d.sleep(ctx, wait); err != nil {
			d.release(store, it, it.NextAttemptAt, log)
			return
		}
	}
}

func (d *Dispatcher) prepare(it *outbox.Intent) (Message, error) {
	if err := contact.Validate(it.Contact); err != nil {
		return Message{}, err
	}
	if d.renderer == nil {
		return Message{EventKey: it.EventKey, Kind: it.Kind, To: it.Contact, Subject: string(it.Kind)}, nil
	}
	return d.renderer.Render(it)
}

func (d *Dispatcher) attempt(ctx context.Context, msg Message) error {
	actx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()
	err := d.channel.Send(actx, msg)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return errs.TransientDelivery(fmt.Errorf("attempt timed out after %s: %w", d.cfg.AttemptTimeout, err))
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, it *outbox.Intent, log *zap.Logger) {
	it.MarkDelivered(d.now())
	d.save(ctx, it, log)
	log.Info("notification delivered", zap.Int("attempts", it.Attempts))
}

func (d *Dispatcher) fail(ctx context.Context, it *outbox.Intent, cause error, log *zap.Logger) {
	it.MarkFailed(d.now(), cause.Error())
	d.save(ctx, it, log)
	log.Error("notification failed permanently", zap.Int("attempts", it.Attempts), zap.Error(cause))
}

func (d *Dispatcher) release(ctx context.Context, it *outbox.Intent, next time.Time, log *zap.Logger) {
	it.Release(next)
	d.save(ctx, it, log)
	log.Info("delivery interrupted, intent released", zap.Int("attempts", it.Attempts))
}

func (d *Dispatcher) save(ctx context.Context, it *outbox.Intent, log *zap.Logger) {
	if err := d.intents.Save(ctx, it); err != nil {
		// lease expiry hands the intent to the next poll
		log.Error("persist intent state failed", zap.Error(err))
	}
}

// ListFailed returns terminally failed intents, newest first.
func (d *Dispatcher) ListFailed(ctx context.Context, limit int) ([]outbox.Intent, error) {
	rows, err := d.intents.ListByStatus(ctx, outbox.StatusFailed, limit)
	return rows, errs.FromStore(err, nil)
}

// Redrive puts a failed intent back in the queue with a fresh attempt budget.
func (d *Dispatcher) Redrive(ctx context.Context, id uint64) (*outbox.Intent, error) {
	var out *outbox.Intent
	err := d.uow.WithinTx(ctx, func(r uow.Repos) error {
		it, err := r.Outbox.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !it.Redrive(d.now()) {
			return errs.InvalidState("intent_not_failed", "intent %d is %s, only failed intents can be redriven", id, it.Status)
		}
		if err := r.Outbox.Save(ctx, it); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, errs.NotFound("intent_not_found", "intent %d not found", id))
	}
	d.log.Info("intent redriven", zap.Uint64("intent_id", id))
	d.Wake()
	return out, nil
}

func (d *Dispatcher) Stats(ctx context.Context) (Stats, error) {
	counts, err := d.intents.CountByStatus(ctx)
	if err != nil {
		return Stats{}, errs.FromStore(err, nil)
	}
	return Stats{
		Pending:    counts[outbox.StatusPending],
		Processing: counts[outbox.StatusProcessing],
		Delivered:  counts[outbox.StatusDelivered],
		Failed:     counts[outbox.StatusFailed],
	}, nil
}
