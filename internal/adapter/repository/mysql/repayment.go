package mysql

import (
	"context"
	"time"

	repaymentDomain "loanledger/internal/domain/repayment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository {
	return &RepaymentRepository{db: db}
}

func (r *RepaymentRepository) Create(ctx context.Context, rp *repaymentDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(rp).Error
}

func (r *RepaymentRepository) Save(ctx context.Context, rp *repaymentDomain.Repayment) error {
	return r.db.WithContext(ctx).Save(rp).Error
}

func (r *RepaymentRepository) GetByRepaymentID(ctx context.Context, repaymentID string) (*repaymentDomain.Repayment, error) {
	var out repaymentDomain.Repayment
	res := r.db.WithContext(ctx).Where("repayment_id = ?", repaymentID).First(&out)
	return &out, res.Error
}

func (r *RepaymentRepository) GetByRepaymentIDForUpdate(ctx context.Context, repaymentID string) (*repaymentDomain.Repayment, error) {
	var out repaymentDomain.Repayment
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("repayment_id = ?", repaymentID).
		First(&out)
	return &out, res.Error
}

func (r *RepaymentRepository) ListByBorrowerID(ctx context.Context, borrowerID string) ([]repaymentDomain.Repayment, error) {
	var out []repaymentDomain.Repayment
	res := r.db.WithContext(ctx).Where("borrower_id = ?", borrowerID).Order("due_date, id").Find(&out)
	return out, res.Error
}

func (r *RepaymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]repaymentDomain.Repayment, error) {
	var out []repaymentDomain.Repayment
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("due_date, id").Find(&out)
	return out, res.Error
}

func (r *RepaymentRepository) ListByBorrowerAndStatus(ctx context.Context, borrowerID string, status repaymentDomain.Status) ([]repaymentDomain.Repayment, error) {
	var out []repaymentDomain.Repayment
	res := r.db.WithContext(ctx).
		Where("borrower_id = ? AND status = ?", borrowerID, status).
		Order("due_date, id").
		Find(&out)
	return out, res.Error
}

func (r *RepaymentRepository) ListByBorrowerDueBetween(ctx context.Context, borrowerID string, start, end time.Time) ([]repaymentDomain.Repayment, error) {
	var out []repaymentDomain.Repayment
	res := r.db.WithContext(ctx).
		Where("borrower_id = ? AND due_date >= ? AND due_date <= ?",
			borrowerID, repaymentDomain.DateOf(start), repaymentDomain.DateOf(end)).
		Order("due_date, id").
		Find(&out)
	return out, res.Error
}

func (r *RepaymentRepository) ListDueBeforeWithStatus(ctx context.Context, before time.Time, status repaymentDomain.Status) ([]repaymentDomain.Repayment, error) {
	var out []repaymentDomain.Repayment
	res := r.db.WithContext(ctx).
		Where("due_date < ? AND status = ?", repaymentDomain.DateOf(before), status).
		Order("due_date, id").
		Find(&out)
	return out, res.Error
}
