package repayment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Repayment) error
	Save(ctx context.Context, r *Repayment) error
	GetByRepaymentID(ctx context.Context, repaymentID string) (*Repayment, error)
	// GetByRepaymentIDForUpdate locks the row; only meaningful inside a transaction.
	GetByRepaymentIDForUpdate(ctx context.Context, repaymentID string) (*Repayment, error)
	ListByBorrowerID(ctx context.Context, borrowerID string) ([]Repayment, error)
	ListByLoanID(ctx context.Context, loanID string) ([]Repayment, error)
	// ListByBorrowerAndStatus is ordered by due date.
	ListByBorrowerAndStatus(ctx context.Context, borrowerID string, status Status) ([]Repayment, error)
	// ListByBorrowerDueBetween is inclusive on both ends and ordered by due date.
	ListByBorrowerDueBetween(ctx context.Context, borrowerID string, start, end time.Time) ([]Repayment, error)
	// ListDueBeforeWithStatus returns rows with due_date < before.
	ListDueBeforeWithStatus(ctx context.Context, before time.Time, status Status) ([]Repayment, error)
}
