package mysql

import (
	"context"
	"time"

	outboxDomain "loanledger/internal/domain/outbox"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) *OutboxRepository { return &OutboxRepository{db: db} }

// Enqueue relies on the unique event_key index; a duplicate is a no-op.
func (r *OutboxRepository) Enqueue(ctx context.Context, i *outboxDomain.Intent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_key"}}, DoNothing: true}).
		Create(i)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OutboxRepository) Save(ctx context.Context, i *outboxDomain.Intent) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *OutboxRepository) GetByID(ctx context.Context, id uint64) (*outboxDomain.Intent, error) {
	var out outboxDomain.Intent
	res := r.db.WithContext(ctx).First(&out, id)
	return &out, res.Error
}

func (r *OutboxRepository) ListClaimable(ctx context.Context, now time.Time, limit int) ([]outboxDomain.Intent, error) {
	var out []outboxDomain.Intent
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("(status = ? AND next_attempt_at <= ?) OR (status = ? AND lease_until < ?)",
			outboxDomain.StatusPending, now, outboxDomain.StatusProcessing, now).
		Order("id").
		Limit(limit).
		Find(&out)
	return out, res.Error
}

func (r *OutboxRepository) ListByStatus(ctx context.Context, status outboxDomain.Status, limit int) ([]outboxDomain.Intent, error) {
	var out []outboxDomain.Intent
	q := r.db.WithContext(ctx).Where("status = ?", status).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	res := q.Find(&out)
	return out, res.Error
}

func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[outboxDomain.Status]int64, error) {
	var rows []struct {
		Status outboxDomain.Status
		N      int64
	}
	res := r.db.WithContext(ctx).
		Model(&outboxDomain.Intent{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make(map[outboxDomain.Status]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
