package uowmock

import (
	"context"
	"errors"

	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/repayment"
	"loanledger/internal/domain/uow"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var ErrUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed uow.UnitOfWork. Unfilled methods return
// ErrUnimplemented. See Passthrough for a ready-made in-memory wiring.
type UoW struct {
	WithinTxFn          func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn      func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error
	WithinRepaymentTxFn func(ctx context.Context, repaymentID string, fn func(r uow.Repos, rp *repayment.Repayment) error) error
}

// Passthrough runs every callback directly against repos, loading the
// locked row through the repos' ForUpdate getters.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error {
			return fn(repos)
		},
		WithinLoanTxFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := repos.Loans.GetByLoanIDForUpdate(ctx, loanID)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
		WithinRepaymentTxFn: func(ctx context.Context, repaymentID string, fn func(uow.Repos, *repayment.Repayment) error) error {
			rp, err := repos.Repayments.GetByRepaymentIDForUpdate(ctx, repaymentID)
			if err != nil {
				return err
			}
			return fn(repos, rp)
		},
	}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return ErrUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return ErrUnimplemented
}

func (m *UoW) WithinRepaymentTx(ctx context.Context, repaymentID string, fn func(r uow.Repos, rp *repayment.Repayment) error) error {
	if m.WithinRepaymentTxFn != nil {
		return m.WithinRepaymentTxFn(ctx, repaymentID, fn)
	}
	return ErrUnimplemented
}
