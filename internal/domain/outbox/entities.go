package outbox

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindRepaymentSuccess Kind = "repayment_success"
	KindLoanApproved     Kind = "loan_approved"
	KindOverdue          Kind = "overdue"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// Payload is what a notification needs to be rendered. Stored as JSON.
type Payload struct {
	LoanID          string           `json:"loan_id"`
	RepaymentID     string           `json:"repayment_id,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	RemainingAmount *decimal.Decimal `json:"remaining_amount,omitempty"`
	DueDate         *time.Time       `json:"due_date,omitempty"`
}

// Intent is one notification waiting for (or done with) delivery.
// Rows are kept after delivery for audit.
type Intent struct {
	ID            uint64     `gorm:"primaryKey;column:id" json:"id"`
	EventKey      string     `gorm:"size:128;uniqueIndex:ux_outbox_event_key" json:"event_key"`
	Kind          Kind       `gorm:"size:32" json:"kind"`
	Contact       string     `gorm:"size:255" json:"contact"`
	Payload       Payload    `gorm:"type:text;serializer:json" json:"payload"`
	Status        Status     `gorm:"size:16;index:idx_outbox_status_next,priority:1" json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time  `gorm:"index:idx_outbox_status_next,priority:2" json:"next_attempt_at"`
	LeaseUntil    *time.Time `json:"lease_until,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Intent) TableName() string { return "notification_outbox" }

// EventKey is the stable dedupe key: one intent per (kind, loan, repayment).
func EventKey(kind Kind, loanID, repaymentID string) string {
	if repaymentID == "" {
		repaymentID = "-"
	}
	return fmt.Sprintf("%s:%s:%s", kind, loanID, repaymentID)
}

// NewIntent builds a pending intent ready to be enqueued.
func NewIntent(kind Kind, contact string, p Payload, now time.Time) *Intent {
	return &Intent{
		EventKey:      EventKey(kind, p.LoanID, p.RepaymentID),
		Kind:          kind,
		Contact:       contact,
		Payload:       p,
		Status:        StatusPending,
		NextAttemptAt: now,
	}
}

func (i *Intent) Claim(now time.Time, lease time.Duration) {
	until := now.Add(lease)
	i.Status = StatusProcessing
	i.LeaseUntil = &until
}

func (i *Intent) MarkDelivered(now time.Time) {
	i.Status = StatusDelivered
	i.DeliveredAt = &now
	i.LeaseUntil = nil
}

func (i *Intent) MarkFailed(now time.Time, reason string) {
	i.Status = StatusFailed
	i.LastError = reason
	i.FailedAt = &now
	i.LeaseUntil = nil
}

// Release hands the intent back to the poller for a later attempt.
func (i *Intent) Release(next time.Time) {
	i.Status = StatusPending
	i.NextAttemptAt = next
	i.LeaseUntil = nil
}

// Redrive resets a failed intent so it gets a fresh set of attempts.
func (i *Intent) Redrive(now time.Time) bool {
	if i.Status != StatusFailed {
		return false
	}
	i.Status = StatusPending
	i.Attempts = 0
	i.NextAttemptAt = now
	i.FailedAt = nil
	return true
}
