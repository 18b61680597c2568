package repayment

import (
	"time"

	domain "loanledger/internal/domain/repayment"

	"github.com/shopspring/decimal"
)

type CreatePlanInput struct {
	LoanID          string
	BorrowerID      string
	BorrowerContact string
	Amount          decimal.Decimal
	DueDate         time.Time
	Type            domain.Type
}

// ApplyInput records an actual payment. Status defaults to PAID, DueDate to
// today and BorrowerContact to the loan's contact.
type ApplyInput struct {
	LoanID          string
	BorrowerID      string
	BorrowerContact string
	Amount          decimal.Decimal
	DueDate         time.Time
	Status          domain.Status
	Type            domain.Type
}

type RepaymentDTO struct {
	RepaymentID      string          `json:"repayment_id"`
	LoanID           string          `json:"loan_id"`
	BorrowerID       string          `json:"borrower_id"`
	BorrowerContact  string          `json:"borrower_contact"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          string          `json:"due_date"`
	Status           string          `json:"status"`
	Type             string          `json:"repayment_type"`
	PaymentDate      *string         `json:"payment_date,omitempty"`
	PaymentTimestamp *time.Time      `json:"payment_timestamp,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func toDTO(r *domain.Repayment) *RepaymentDTO {
	dto := &RepaymentDTO{
		RepaymentID:      r.RepaymentID,
		LoanID:           r.LoanID,
		BorrowerID:       r.BorrowerID,
		BorrowerContact:  r.BorrowerContact,
		Amount:           r.Amount,
		DueDate:          r.DueDate.Format(dateLayout),
		Status:           string(r.Status),
		Type:             string(r.Type),
		PaymentTimestamp: r.PaymentTimestamp,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.PaymentDate != nil {
		d := r.PaymentDate.Format(dateLayout)
		dto.PaymentDate = &d
	}
	return dto
}

func toDTOs(rs []domain.Repayment) []RepaymentDTO {
	out := make([]RepaymentDTO, 0, len(rs))
	for i := range rs {
		out = append(out, *toDTO(&rs[i]))
	}
	return out
}
