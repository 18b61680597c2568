package investment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
)

// Investment is an investor's commitment to fund part of an approved loan.
// Only confirmed investments count towards funding.
type Investment struct {
	ID           uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	InvestmentID string          `gorm:"column:investment_id;size:32;not null;uniqueIndex:ux_investments_investment_id" json:"investment_id"`
	InvestorID   string          `gorm:"column:investor_id;size:32;not null;index:idx_investments_investor" json:"investor_id"`
	LoanID       string          `gorm:"column:loan_id;size:32;not null;index:idx_investments_loan" json:"loan_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status       Status          `gorm:"column:status;size:16;not null;default:'PENDING'" json:"status"`
	ConfirmedAt  *time.Time      `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Investment) TableName() string { return "investments" }

// Confirm reports false when the investment was already confirmed.
func (i *Investment) Confirm(now time.Time) bool {
	if i.Status == StatusConfirmed {
		return false
	}
	i.Status = StatusConfirmed
	i.ConfirmedAt = &now
	return true
}
