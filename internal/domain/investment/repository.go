package investment

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, i *Investment) error
	Save(ctx context.Context, i *Investment) error

	GetByInvestmentID(ctx context.Context, investmentID string) (*Investment, error)

	// ordered by creation
	ListByInvestorID(ctx context.Context, investorID string) ([]Investment, error)
	ListByLoanID(ctx context.Context, loanID string) ([]Investment, error)

	// Sum of confirmed amounts for a loan; zero when there are none.
	SumConfirmedByLoanID(ctx context.Context, loanID string) (decimal.Decimal, error)
}
