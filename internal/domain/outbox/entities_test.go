package outbox

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEventKey(t *testing.T) {
	assert.Equal(t, "overdue:L1:R1", EventKey(KindOverdue, "L1", "R1"))
	assert.Equal(t, "loan_approved:L1:-", EventKey(KindLoanApproved, "L1", ""))
}

func TestIntentLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	it := NewIntent(KindRepaymentSuccess, "a@b.io", Payload{LoanID: "L", RepaymentID: "R", Amount: decimal.NewFromInt(10)}, now)

	assert.Equal(t, StatusPending, it.Status)
	assert.Equal(t, "repayment_success:L:R", it.EventKey)
	assert.True(t, it.NextAttemptAt.Equal(now))

	it.Claim(now, time.Minute)
	assert.Equal(t, StatusProcessing, it.Status)
	assert.True(t, it.LeaseUntil.Equal(now.Add(time.Minute)))

	assert.False(t, it.Redrive(now), "only failed intents can be redriven")

	it.Attempts = 3
	it.MarkFailed(now, "smtp down")
	assert.Equal(t, StatusFailed, it.Status)
	assert.Nil(t, it.LeaseUntil)
	assert.Equal(t, "smtp down", it.LastError)

	later := now.Add(time.Hour)
	assert.True(t, it.Redrive(later))
	assert.Equal(t, StatusPending, it.Status)
	assert.Zero(t, it.Attempts)
	assert.Nil(t, it.FailedAt)

	it.MarkDelivered(later)
	assert.Equal(t, StatusDelivered, it.Status)
	assert.True(t, it.DeliveredAt.Equal(later))
}

func TestRelease(t *testing.T) {
	now := time.Now().UTC()
	it := &Intent{Status: StatusProcessing}
	it.Claim(now, time.Second)
	it.Release(now.Add(2 * time.Second))
	assert.Equal(t, StatusPending, it.Status)
	assert.Nil(t, it.LeaseUntil)
	assert.True(t, it.NextAttemptAt.Equal(now.Add(2*time.Second)))
}
