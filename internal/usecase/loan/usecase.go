package loan

import (
	"context"
	"errors"
	"strings"
	"time"

	"loanledger/internal/domain/contact"
	"loanledger/internal/domain/errs"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/money"
	"loanledger/internal/domain/repayment"
	"loanledger/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Usecase struct {
	repo loan.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewUsecase(r loan.Repository, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{repo: r, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Apply opens a PENDING loan application. A borrower may have at most one
// pending application at a time.
func (u *Usecase) Apply(ctx context.Context, in ApplyLoanInput) (*LoanDTO, error) {
	if strings.TrimSpace(in.BorrowerID) == "" {
		return nil, errs.Validation("borrower_id_required", "borrower_id is required")
	}
	if err := contact.Validate(in.BorrowerContact); err != nil {
		return nil, err
	}
	if err := money.Validate("principal", in.Principal); err != nil {
		return nil, err
	}
	if in.TermMonths <= 0 {
		return nil, errs.Validation("term_not_positive", "term_months must be greater than zero")
	}
	if in.InterestRate.IsNegative() {
		return nil, errs.Validation("interest_rate_negative", "interest_rate must not be negative")
	}

	pending, err := u.repo.GetPendingLoanByBorrowerID(ctx, in.BorrowerID)
	switch {
	case err == nil:
		return nil, errs.InvalidState("pending_loan_exists", "borrower %s already has a pending loan: %s", in.BorrowerID, pending.LoanID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errs.FromStore(err, nil)
	}

	now := u.now()
	l := &loan.Loan{
		LoanID:          id.NewID32(),
		BorrowerID:      in.BorrowerID,
		BorrowerContact: in.BorrowerContact,
		Principal:       in.Principal,
		TermMonths:      in.TermMonths,
		InterestRate:    in.InterestRate,
		Purpose:         in.Purpose,
		Description:     in.Description,
		Status:          loan.StatusPending,
		RepaymentStatus: loan.RepaymentNotStarted,
		RepaidAmount:    decimal.Zero,
		RemainingAmount: in.Principal,
		RiskScore:       in.RiskScore,
		StatusUpdatedAt: now,
	}
	if in.FundingDeadline != nil {
		d := repayment.DateOf(*in.FundingDeadline)
		l.FundingDeadline = &d
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, errs.FromStore(err, nil)
	}
	u.log.Info("loan applied", zap.String("loan_id", l.LoanID), zap.String("borrower_id", l.BorrowerID))
	return ToDTO(l), nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, errs.FromStore(err, errs.NotFound("loan_not_found", "loan %s not found", loanID))
	}
	return ToDTO(l), nil
}

func (u *Usecase) ListPending(ctx context.Context) ([]LoanDTO, error) {
	ls, err := u.repo.ListByStatus(ctx, loan.StatusPending)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(ls), nil
}

func (u *Usecase) ListByBorrower(ctx context.Context, borrowerID string) ([]LoanDTO, error) {
	ls, err := u.repo.ListByBorrowerID(ctx, borrowerID)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(ls), nil
}

func toDTOs(ls []loan.Loan) []LoanDTO {
	out := make([]LoanDTO, 0, len(ls))
	for i := range ls {
		out = append(out, *ToDTO(&ls[i]))
	}
	return out
}
