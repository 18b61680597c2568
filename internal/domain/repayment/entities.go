package repayment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusOverdue Status = "OVERDUE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

type Type string

const (
	TypeFull    Type = "FULL"
	TypePartial Type = "PARTIAL"
)

func (t Type) Valid() bool { return t == TypeFull || t == TypePartial }

// PAID is terminal; an overdue repayment may still be paid.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusOverdue},
	StatusOverdue: {StatusPaid},
}

type Repayment struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	RepaymentID      string          `gorm:"size:32;uniqueIndex:ux_repayments_repayment_id" json:"repayment_id"`
	LoanID           string          `gorm:"size:32;index:idx_repayments_loan" json:"loan_id"`
	BorrowerID       string          `gorm:"size:32;index:idx_repayments_borrower_due,priority:1" json:"borrower_id"`
	BorrowerContact  string          `gorm:"size:255" json:"borrower_contact"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	DueDate          time.Time       `gorm:"type:date;index:idx_repayments_borrower_due,priority:2;index:idx_repayments_status_due,priority:2" json:"due_date"`
	Status           Status          `gorm:"size:16;index:idx_repayments_status_due,priority:1" json:"status"`
	Type             Type            `gorm:"column:repayment_type;size:16" json:"repayment_type"`
	PaymentDate      *time.Time      `gorm:"type:date" json:"payment_date,omitempty"`
	PaymentTimestamp *time.Time      `json:"payment_timestamp,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Repayment) TableName() string { return "repayments" }

func (r *Repayment) CanTransitionTo(next Status) bool {
	for _, s := range transitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// MarkPaid stamps the payment date (business day) and timestamp.
func (r *Repayment) MarkPaid(now time.Time) {
	day := DateOf(now)
	ts := now
	r.Status = StatusPaid
	r.PaymentDate = &day
	r.PaymentTimestamp = &ts
}

// DateOf truncates t to midnight UTC, the representation used for every
// date-only column.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
