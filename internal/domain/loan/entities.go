package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusFunded    Status = "FUNDED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusDefaulted Status = "DEFAULTED"
)

// RepaymentStatus is the coarse repayment projection kept on the loan row.
type RepaymentStatus string

const (
	RepaymentNotStarted RepaymentStatus = "NOT_STARTED"
	RepaymentInProgress RepaymentStatus = "IN_PROGRESS"
	RepaymentCompleted  RepaymentStatus = "COMPLETED"
	RepaymentDefaulted  RepaymentStatus = "DEFAULTED"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusFunded, StatusRejected},
	StatusFunded:   {StatusActive, StatusDefaulted},
	StatusActive:   {StatusCompleted, StatusDefaulted},
}

// Loan rows are never deleted, so there is no soft-delete column.
type Loan struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID          string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	BorrowerID      string          `gorm:"size:32;index:idx_loans_borrower" json:"borrower_id"`
	BorrowerContact string          `gorm:"size:255" json:"borrower_contact"`
	Principal       decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal"`
	TermMonths      int             `json:"term_months"`
	InterestRate    decimal.Decimal `gorm:"type:decimal(6,4)" json:"interest_rate"`
	Purpose         string          `gorm:"size:255" json:"purpose,omitempty"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	Status          Status          `gorm:"size:16;index:idx_loans_status;default:'PENDING'" json:"status"`
	RepaymentStatus RepaymentStatus `gorm:"size:16;default:'NOT_STARTED'" json:"repayment_status"`
	RepaidAmount    decimal.Decimal `gorm:"type:decimal(18,2)" json:"repaid_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"remaining_amount"`
	RiskScore       *int            `json:"risk_score,omitempty"`
	FundingDeadline *time.Time      `gorm:"type:date" json:"funding_deadline,omitempty"`
	StatusUpdatedAt time.Time       `json:"status_updated_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (l *Loan) CanTransitionTo(next Status) bool {
	for _, s := range transitions[l.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Outstanding is what the borrower still owes: principal minus repaid.
func (l *Loan) Outstanding() decimal.Decimal {
	return l.Principal.Sub(l.RepaidAmount)
}

// SetStatus moves the loan and stamps StatusUpdatedAt.
func (l *Loan) SetStatus(s Status, at time.Time) {
	l.Status = s
	l.StatusUpdatedAt = at
}
