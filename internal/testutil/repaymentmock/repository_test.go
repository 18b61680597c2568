package repaymentmock

import (
	"context"
	"testing"
	"time"

	domain "loanledger/internal/domain/repayment"

	"github.com/stretchr/testify/assert"
)

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}
	assert.NoError(t, m.Create(ctx, &domain.Repayment{}))
	assert.NoError(t, m.Save(ctx, &domain.Repayment{}))

	_, err := m.GetByRepaymentID(ctx, "r")
	assert.ErrorIs(t, err, ErrUnimplemented)
	_, err = m.ListDueBeforeWithStatus(ctx, time.Now(), domain.StatusPending)
	assert.ErrorIs(t, err, ErrUnimplemented)
	_, err = m.ListByBorrowerDueBetween(ctx, "b", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrUnimplemented)
}

func TestRepo_ListDueBeforeWithStatusFn(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Repo{
		ListDueBeforeWithStatusFn: func(_ context.Context, before time.Time, s domain.Status) ([]domain.Repayment, error) {
			assert.Equal(t, cutoff, before)
			return []domain.Repayment{{Status: s}}, nil
		},
	}
	got, err := m.ListDueBeforeWithStatus(context.Background(), cutoff, domain.StatusPending)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}
