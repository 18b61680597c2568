package investmentmock

import (
	"context"
	"errors"

	domain "loanledger/internal/domain/investment"

	"github.com/shopspring/decimal"
)

var _ domain.Repository = (*Repo)(nil)

var ErrUnimplemented = errors.New("investmentmock: method not implemented")

// Repo is a function-backed investment.Repository. Create and Save succeed
// when unset; getters and lists return ErrUnimplemented.
type Repo struct {
	CreateFn               func(ctx context.Context, i *domain.Investment) error
	SaveFn                 func(ctx context.Context, i *domain.Investment) error
	GetByInvestmentIDFn    func(ctx context.Context, investmentID string) (*domain.Investment, error)
	ListByInvestorIDFn     func(ctx context.Context, investorID string) ([]domain.Investment, error)
	ListByLoanIDFn         func(ctx context.Context, loanID string) ([]domain.Investment, error)
	SumConfirmedByLoanIDFn func(ctx context.Context, loanID string) (decimal.Decimal, error)
}

func (m *Repo) Create(ctx context.Context, i *domain.Investment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, i)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, i *domain.Investment) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, i)
	}
	return nil
}

func (m *Repo) GetByInvestmentID(ctx context.Context, investmentID string) (*domain.Investment, error) {
	if m.GetByInvestmentIDFn != nil {
		return m.GetByInvestmentIDFn(ctx, investmentID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByInvestorID(ctx context.Context, investorID string) ([]domain.Investment, error) {
	if m.ListByInvestorIDFn != nil {
		return m.ListByInvestorIDFn(ctx, investorID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID string) ([]domain.Investment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) SumConfirmedByLoanID(ctx context.Context, loanID string) (decimal.Decimal, error) {
	if m.SumConfirmedByLoanIDFn != nil {
		return m.SumConfirmedByLoanIDFn(ctx, loanID)
	}
	return decimal.Zero, ErrUnimplemented
}
