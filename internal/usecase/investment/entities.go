package investment

import (
	"time"

	domain "loanledger/internal/domain/investment"

	"github.com/shopspring/decimal"
)

type InvestInput struct {
	InvestorID string
	LoanID     string
	Amount     decimal.Decimal
}

type InvestmentDTO struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	LoanID       string          `json:"loan_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ConfirmResult carries the loan status after the confirmation.
type ConfirmResult struct {
	Investment InvestmentDTO `json:"investment"`
	LoanStatus string        `json:"loan_status"`
	LoanFunded bool          `json:"loan_funded"`
}

func toDTO(i *domain.Investment) *InvestmentDTO {
	return &InvestmentDTO{
		InvestmentID: i.InvestmentID,
		InvestorID:   i.InvestorID,
		LoanID:       i.LoanID,
		Amount:       i.Amount,
		Status:       string(i.Status),
		ConfirmedAt:  i.ConfirmedAt,
		CreatedAt:    i.CreatedAt,
	}
}

func toDTOs(is []domain.Investment) []InvestmentDTO {
	out := make([]InvestmentDTO, 0, len(is))
	for i := range is {
		out = append(out, *toDTO(&is[i]))
	}
	return out
}
