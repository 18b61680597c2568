package repaymentmock

import (
	"context"
	"errors"
	"time"

	domain "loanledger/internal/domain/repayment"
)

var _ domain.Repository = (*Repo)(nil)

var ErrUnimplemented = errors.New("repaymentmock: method not implemented")

type Repo struct {
	CreateFn                    func(ctx context.Context, rp *domain.Repayment) error
	SaveFn                      func(ctx context.Context, rp *domain.Repayment) error
	GetByRepaymentIDFn          func(ctx context.Context, repaymentID string) (*domain.Repayment, error)
	GetByRepaymentIDForUpdateFn func(ctx context.Context, repaymentID string) (*domain.Repayment, error)
	ListByBorrowerIDFn          func(ctx context.Context, borrowerID string) ([]domain.Repayment, error)
	ListByLoanIDFn              func(ctx context.Context, loanID string) ([]domain.Repayment, error)
	ListByBorrowerAndStatusFn   func(ctx context.Context, borrowerID string, status domain.Status) ([]domain.Repayment, error)
	ListByBorrowerDueBetweenFn  func(ctx context.Context, borrowerID string, start, end time.Time) ([]domain.Repayment, error)
	ListDueBeforeWithStatusFn   func(ctx context.Context, before time.Time, status domain.Status) ([]domain.Repayment, error)
}

func (m *Repo) Create(ctx context.Context, rp *domain.Repayment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, rp)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, rp *domain.Repayment) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, rp)
	}
	return nil
}

func (m *Repo) GetByRepaymentID(ctx context.Context, repaymentID string) (*domain.Repayment, error) {
	if m.GetByRepaymentIDFn != nil {
		return m.GetByRepaymentIDFn(ctx, repaymentID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) GetByRepaymentIDForUpdate(ctx context.Context, repaymentID string) (*domain.Repayment, error) {
	if m.GetByRepaymentIDForUpdateFn != nil {
		return m.GetByRepaymentIDForUpdateFn(ctx, repaymentID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByBorrowerID(ctx context.Context, borrowerID string) ([]domain.Repayment, error) {
	if m.ListByBorrowerIDFn != nil {
		return m.ListByBorrowerIDFn(ctx, borrowerID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID string) ([]domain.Repayment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByBorrowerAndStatus(ctx context.Context, borrowerID string, status domain.Status) ([]domain.Repayment, error) {
	if m.ListByBorrowerAndStatusFn != nil {
		return m.ListByBorrowerAndStatusFn(ctx, borrowerID, status)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListByBorrowerDueBetween(ctx context.Context, borrowerID string, start, end time.Time) ([]domain.Repayment, error) {
	if m.ListByBorrowerDueBetweenFn != nil {
		return m.ListByBorrowerDueBetweenFn(ctx, borrowerID, start, end)
	}
	return nil, ErrUnimplemented
}

func (m *Repo) ListDueBeforeWithStatus(ctx context.Context, before time.Time, status domain.Status) ([]domain.Repayment, error) {
	if m.ListDueBeforeWithStatusFn != nil {
		return m.ListDueBeforeWithStatusFn(ctx, before, status)
	}
	return nil, ErrUnimplemented
}
