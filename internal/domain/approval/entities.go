package approval

import (
	"time"
)

// Approval is the audit record written when a loan moves PENDING -> APPROVED.
type Approval struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Public identifier (32-char lowercase hex)
	ApprovalID string `gorm:"column:approval_id;size:32;not null;uniqueIndex:ux_approvals_approval_id"`
	// FK to loans.id (numeric); one approval per loan
	LoanID       uint64    `gorm:"column:loan_id;not null;uniqueIndex:ux_approvals_loan"`
	ApproverID   string    `gorm:"column:approver_id;size:32;not null"`
	Note         string    `gorm:"column:note;type:text"`
	ApprovalDate time.Time `gorm:"column:approval_date;type:date;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Approval) TableName() string { return "approvals" }
