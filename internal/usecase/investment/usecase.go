package investment

import (
	"context"
	"strings"
	"time"

	"loanledger/internal/domain/errs"
	domain "loanledger/internal/domain/investment"
	domainLoan "loanledger/internal/domain/loan"
	"loanledger/internal/domain/money"
	"loanledger/internal/domain/uow"
	loanUsecase "loanledger/internal/usecase/loan"
	"loanledger/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Usecase struct {
	uow         uow.UnitOfWork
	investments domain.Repository
	log         *zap.Logger
	now         func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, investments domain.Repository, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		uow:         tx,
		investments: investments,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return errs.Validation(field+"_required", "%s is required", field)
	}
	return nil
}

func loanNotFound(loanID string) *errs.Error {
	return errs.NotFound("loan_not_found", "loan %s not found", loanID)
}

func investmentNotFound(investmentID string) *errs.Error {
	return errs.NotFound("investment_not_found", "investment %s not found", investmentID)
}

// openAmount is what confirmed investments have not yet covered.
func openAmount(ctx context.Context, r uow.Repos, l *domainLoan.Loan) (decimal.Decimal, error) {
	sum, err := r.Investments.SumConfirmedByLoanID(ctx, l.LoanID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Principal.Sub(sum), nil
}

// Invest records a PENDING commitment against an APPROVED loan. The amount
// may not exceed what confirmed investments leave open.
func (u *Usecase) Invest(ctx context.Context, in InvestInput) (*InvestmentDTO, error) {
	if err := required("investor_id", in.InvestorID); err != nil {
		return nil, err
	}
	if err := required("loan_id", in.LoanID); err != nil {
		return nil, err
	}
	if err := money.Validate("amount", in.Amount); err != nil {
		return nil, err
	}

	var out *domain.Investment
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.Status != domainLoan.StatusApproved {
			return errs.InvalidState("loan_not_open_for_funding", "loan %s is %s, only APPROVED loans accept investments", l.LoanID, l.Status)
		}
		open, err := openAmount(ctx, r, l)
		if err != nil {
			return err
		}
		if in.Amount.GreaterThan(open) {
			return errs.Validation("amount_exceeds_open", "amount %s exceeds open amount %s",
				in.Amount.StringFixed(money.Scale), open.StringFixed(money.Scale))
		}
		inv := &domain.Investment{
			InvestmentID: id.NewID32(),
			InvestorID:   in.InvestorID,
			LoanID:       l.LoanID,
			Amount:       in.Amount,
			Status:       domain.StatusPending,
		}
		if err := r.Investments.Create(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, loanNotFound(in.LoanID))
	}
	u.log.Info("investment recorded",
		zap.String("investment_id", out.InvestmentID),
		zap.String("loan_id", out.LoanID),
		zap.String("amount", out.Amount.String()),
	)
	return toDTO(out), nil
}

// Confirm counts an investment towards funding. The confirmation that
// covers the whole principal moves the loan APPROVED -> FUNDED in the same
// transaction. Confirming twice returns the investment unchanged.
func (u *Usecase) Confirm(ctx context.Context, investmentID string) (*ConfirmResult, error) {
	if err := required("investment_id", investmentID); err != nil {
		return nil, err
	}
	inv, err := u.investments.GetByInvestmentID(ctx, investmentID)
	if err != nil {
		return nil, errs.FromStore(err, investmentNotFound(investmentID))
	}

	now := u.now()
	var res ConfirmResult
	err = u.uow.WithinLoanTx(ctx, inv.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		// re-read under the loan lock
		cur, err := r.Investments.GetByInvestmentID(ctx, investmentID)
		if err != nil {
			return err
		}
		res.LoanStatus = string(l.Status)
		if cur.Status == domain.StatusConfirmed {
			res.Investment = *toDTO(cur)
			return nil
		}
		if l.Status != domainLoan.StatusApproved {
			return errs.InvalidState("loan_not_open_for_funding", "loan %s is %s, only APPROVED loans accept investments", l.LoanID, l.Status)
		}
		open, err := openAmount(ctx, r, l)
		if err != nil {
			return err
		}
		if cur.Amount.GreaterThan(open) {
			return errs.Validation("amount_exceeds_open", "investment %s of %s exceeds open amount %s",
				cur.InvestmentID, cur.Amount.StringFixed(money.Scale), open.StringFixed(money.Scale))
		}

		cur.Confirm(now)
		if err := r.Investments.Save(ctx, cur); err != nil {
			return err
		}
		if cur.Amount.Equal(open) && l.CanTransitionTo(domainLoan.StatusFunded) {
			l.SetStatus(domainLoan.StatusFunded, now)
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			res.LoanFunded = true
		}
		res.LoanStatus = string(l.Status)
		res.Investment = *toDTO(cur)
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, loanNotFound(inv.LoanID))
	}
	u.log.Info("investment confirmed",
		zap.String("investment_id", investmentID),
		zap.String("loan_id", inv.LoanID),
		zap.Bool("loan_funded", res.LoanFunded),
	)
	return &res, nil
}

// Disburse hands the pooled funds to the borrower: FUNDED -> ACTIVE.
func (u *Usecase) Disburse(ctx context.Context, loanID string) (*loanUsecase.LoanDTO, error) {
	if err := required("loan_id", loanID); err != nil {
		return nil, err
	}
	now := u.now()
	var dto *loanUsecase.LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if !l.CanTransitionTo(domainLoan.StatusActive) {
			return errs.InvalidState("loan_not_funded", "loan %s is %s, only FUNDED loans can be disbursed", l.LoanID, l.Status)
		}
		l.SetStatus(domainLoan.StatusActive, now)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = loanUsecase.ToDTO(l)
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, loanNotFound(loanID))
	}
	u.log.Info("loan disbursed", zap.String("loan_id", loanID))
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, investmentID string) (*InvestmentDTO, error) {
	inv, err := u.investments.GetByInvestmentID(ctx, investmentID)
	if err != nil {
		return nil, errs.FromStore(err, investmentNotFound(investmentID))
	}
	return toDTO(inv), nil
}

func (u *Usecase) ListByInvestor(ctx context.Context, investorID string) ([]InvestmentDTO, error) {
	if err := required("investor_id", investorID); err != nil {
		return nil, err
	}
	is, err := u.investments.ListByInvestorID(ctx, investorID)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(is), nil
}

func (u *Usecase) ListByLoan(ctx context.Context, loanID string) ([]InvestmentDTO, error) {
	if err := required("loan_id", loanID); err != nil {
		return nil, err
	}
	is, err := u.investments.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(is), nil
}
