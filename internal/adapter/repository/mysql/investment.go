package mysql

import (
	"context"

	investmentDomain "loanledger/internal/domain/investment"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvestmentRepository struct{ db *gorm.DB }

func NewInvestmentRepository(db *gorm.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) Create(ctx context.Context, i *investmentDomain.Investment) error {
	return r.db.WithContext(ctx).Create(i).Error
}

func (r *InvestmentRepository) Save(ctx context.Context, i *investmentDomain.Investment) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *InvestmentRepository) GetByInvestmentID(ctx context.Context, investmentID string) (*investmentDomain.Investment, error) {
	var out investmentDomain.Investment
	res := r.db.WithContext(ctx).Where("investment_id = ?", investmentID).First(&out)
	return &out, res.Error
}

func (r *InvestmentRepository) ListByInvestorID(ctx context.Context, investorID string) ([]investmentDomain.Investment, error) {
	var out []investmentDomain.Investment
	res := r.db.WithContext(ctx).Where("investor_id = ?", investorID).Order("id").Find(&out)
	return out, res.Error
}

func (r *InvestmentRepository) ListByLoanID(ctx context.Context, loanID string) ([]investmentDomain.Investment, error) {
	var out []investmentDomain.Investment
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("id").Find(&out)
	return out, res.Error
}

// SumConfirmedByLoanID adds the amounts in Go so no float SUM is involved.
func (r *InvestmentRepository) SumConfirmedByLoanID(ctx context.Context, loanID string) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	res := r.db.WithContext(ctx).
		Model(&investmentDomain.Investment{}).
		Where("loan_id = ? AND status = ?", loanID, investmentDomain.StatusConfirmed).
		Pluck("amount", &amounts)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}
