package approval

import (
	"time"
)

type ApproveInput struct {
	LoanID       string
	ApproverID   string
	Note         string
	ApprovalDate time.Time // date-only; zero means today
}

type ApprovalDTO struct {
	ApprovalID string    `json:"approval_id"`
	LoanID     string    `json:"loan_id"`
	ApproverID string    `json:"approver_id"`
	Note       string    `json:"note,omitempty"`
	ApprovedAt time.Time `json:"approved_at"`
}

type RejectInput struct {
	LoanID string
	Reason string
}
