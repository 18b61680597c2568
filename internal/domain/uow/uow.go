package uow

import (
	"context"

	"loanledger/internal/domain/approval"
	"loanledger/internal/domain/investment"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/domain/repayment"
)

// Repos are bound to the surrounding transaction.
type Repos struct {
	Loans       loan.Repository
	Repayments  repayment.Repository
	Approvals   approval.Repository
	Investments investment.Repository
	Outbox      outbox.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
	// lock the repayment row first, then pass it in
	WithinRepaymentTx(ctx context.Context, repaymentID string, fn func(r Repos, rp *repayment.Repayment) error) error
}
