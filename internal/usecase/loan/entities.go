package loan

import (
	"time"

	domain "loanledger/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type ApplyLoanInput struct {
	BorrowerID      string
	BorrowerContact string
	Principal       decimal.Decimal
	TermMonths      int
	InterestRate    decimal.Decimal
	Purpose         string
	Description     string
	RiskScore       *int
	FundingDeadline *time.Time
}

type LoanDTO struct {
	LoanID          string          `json:"loan_id"`
	BorrowerID      string          `json:"borrower_id"`
	BorrowerContact string          `json:"borrower_contact"`
	Principal       decimal.Decimal `json:"principal"`
	TermMonths      int             `json:"term_months"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	Purpose         string          `json:"purpose,omitempty"`
	Description     string          `json:"description,omitempty"`
	Status          string          `json:"status"`
	RepaymentStatus string          `json:"repayment_status"`
	RepaidAmount    decimal.Decimal `json:"repaid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	RiskScore       *int            `json:"risk_score,omitempty"`
	FundingDeadline *string         `json:"funding_deadline,omitempty"`
	StatusUpdatedAt time.Time       `json:"status_updated_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func ToDTO(l *domain.Loan) *LoanDTO {
	dto := &LoanDTO{
		LoanID:          l.LoanID,
		BorrowerID:      l.BorrowerID,
		BorrowerContact: l.BorrowerContact,
		Principal:       l.Principal,
		TermMonths:      l.TermMonths,
		InterestRate:    l.InterestRate,
		Purpose:         l.Purpose,
		Description:     l.Description,
		Status:          string(l.Status),
		RepaymentStatus: string(l.RepaymentStatus),
		RepaidAmount:    l.RepaidAmount,
		RemainingAmount: l.RemainingAmount,
		RiskScore:       l.RiskScore,
		StatusUpdatedAt: l.StatusUpdatedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if l.FundingDeadline != nil {
		d := l.FundingDeadline.Format("2006-01-02")
		dto.FundingDeadline = &d
	}
	return dto
}
