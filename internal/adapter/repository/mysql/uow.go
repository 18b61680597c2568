package mysql

import (
	"context"

	"loanledger/internal/domain/approval"
	"loanledger/internal/domain/investment"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/domain/repayment"
	"loanledger/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:       &LoanRepository{db: tx},
		Repayments:  &RepaymentRepository{db: tx},
		Approvals:   &ApprovalRepository{db: tx},
		Investments: &InvestmentRepository{db: tx},
		Outbox:      &OutboxRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the loan row up-front so concurrent writers on the same loan queue here
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinRepaymentTx(ctx context.Context, repaymentID string, fn func(r uow.Repos, rp *repayment.Repayment) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		rp, err := r.Repayments.GetByRepaymentIDForUpdate(ctx, repaymentID)
		if err != nil {
			return err
		}
		return fn(r, rp)
	})
}

// Migrate creates or updates every ledger table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&loan.Loan{}, &repayment.Repayment{}, &approval.Approval{}, &investment.Investment{}, &outbox.Intent{})
}
