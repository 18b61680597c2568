package outbox

import (
	"context"
	"time"
)

type Repository interface {
	// Enqueue inserts the intent unless one with the same EventKey exists.
	// It reports whether a row was written.
	Enqueue(ctx context.Context, i *Intent) (bool, error)
	Save(ctx context.Context, i *Intent) error
	GetByID(ctx context.Context, id uint64) (*Intent, error)
	// ListClaimable returns pending intents due at now and processing intents
	// whose lease expired, locking them (SKIP LOCKED) when inside a transaction.
	ListClaimable(ctx context.Context, now time.Time, limit int) ([]Intent, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Intent, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
