package outboxmock

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "loanledger/internal/domain/outbox"
)

var _ domain.Repository = (*Repo)(nil)

var ErrUnimplemented = errors.New("outboxmock: method not implemented")

// Repo is a function-backed outbox.Repository. When EnqueueFn is unset,
// enqueued intents are recorded in Enqueued.
type Repo struct {
	EnqueueFn       func(ctx context.Context, i *domain.Intent) (bool, error)
	SaveFn          func(ctx context.Context, i *domain.Intent) error
	GetByIDFn       func(ctx context.Context, id uint64) (*domain.Intent, error)
	ListClaimableFn func(ctx context.Context, now time.Time, limit int) ([]domain.Intent, error)
	ListByStatusFn  func(ctx context.Context, status domain.Status, limit int) ([]domain.Intent, error)
	CountByStatusFn func(ctx context.Context) (map[domain.Status]int64, error)

	mu       sync.Mutex
	Enqueued []*domain.Intent
}

func (m *Repo) Enqueue(ctx context.Context, i *domain.Intent) (bool, error) {
	if m.EnqueueFn != nil {
		return m.EnqueueFn(ctx, i)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Enqueued {
		if e.EventKey == i.EventKey {
			return false, nil
		}
	}
	m.Enqueued = append(m.Enqueued, i)
	return true, nil
}

func (m *Repo) Save(ctx context.Context, i *domain.Intent) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, i)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Intent, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListClaimable(ctx context.Context, now time.Time, limit int) ([]domain.Intent, error) {
	if m.ListClaimableFn != nil {
		return m.ListClaimableFn(ctx, now, limit)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Intent, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status, limit)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx)
	}
	return nil, ErrUnimplemented
}
