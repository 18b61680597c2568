package repayment

import (
	"context"
	"strings"
	"time"

	"loanledger/internal/domain/contact"
	"loanledger/internal/domain/errs"
	domainLoan "loanledger/internal/domain/loan"
	"loanledger/internal/domain/money"
	"loanledger/internal/domain/outbox"
	domain "loanledger/internal/domain/repayment"
	"loanledger/internal/domain/uow"
	loanUsecase "loanledger/internal/usecase/loan"
	"loanledger/pkg/id"

	"go.uber.org/zap"
)

// Waker is poked after a commit that enqueued a notification intent.
// It must not block.
type Waker interface {
	Wake()
}

type Usecase struct {
	uow        uow.UnitOfWork
	repayments domain.Repository
	waker      Waker
	log        *zap.Logger
	now        func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, repayments domain.Repository, w Waker, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		uow:        tx,
		repayments: repayments,
		waker:      w,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) wake() {
	if u.waker != nil {
		u.waker.Wake()
	}
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return errs.Validation(field+"_required", "%s is required", field)
	}
	return nil
}

// CreateRepaymentPlan persists a PENDING repayment. It has no other effect.
func (u *Usecase) CreateRepaymentPlan(ctx context.Context, in CreatePlanInput) (*RepaymentDTO, error) {
	if err := requireID("loan_id", in.LoanID); err != nil {
		return nil, err
	}
	if err := requireID("borrower_id", in.BorrowerID); err != nil {
		return nil, err
	}
	if err := contact.Validate(in.BorrowerContact); err != nil {
		return nil, err
	}
	if err := money.Validate("amount", in.Amount); err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, errs.Validation("due_date_required", "due_date is required")
	}
	if !in.Type.Valid() {
		return nil, errs.Validation("type_invalid", "repayment type must be FULL or PARTIAL")
	}

	rp := &domain.Repayment{
		RepaymentID:     id.NewID32(),
		LoanID:          in.LoanID,
		BorrowerID:      in.BorrowerID,
		BorrowerContact: in.BorrowerContact,
		Amount:          in.Amount,
		DueDate:         domain.DateOf(in.DueDate),
		Status:          domain.StatusPending,
		Type:            in.Type,
	}
	if err := u.repayments.Create(ctx, rp); err != nil {
		return nil, errs.FromStore(err, nil)
	}
	u.log.Info("repayment planned",
		zap.String("loan_id", rp.LoanID),
		zap.String("repayment_id", rp.RepaymentID),
		zap.String("amount", rp.Amount.String()),
	)
	return toDTO(rp), nil
}

// ApplyRepayment records a payment and updates the loan balance in one
// transaction holding the loan row lock. The repayment_success intent is
// written in the same transaction.
func (u *Usecase) ApplyRepayment(ctx context.Context, in ApplyInput) (*RepaymentDTO, error) {
	if err := money.Validate("amount", in.Amount); err != nil {
		return nil, err
	}
	if err := requireID("loan_id", in.LoanID); err != nil {
		return nil, err
	}
	if err := requireID("borrower_id", in.BorrowerID); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, errs.Validation("type_invalid", "repayment type must be FULL or PARTIAL")
	}
	if in.Status == "" {
		in.Status = domain.StatusPaid
	}
	if !in.Status.Valid() {
		return nil, errs.Validation("status_invalid", "repayment status %q is not valid", in.Status)
	}
	if in.BorrowerContact != "" {
		if err := contact.Validate(in.BorrowerContact); err != nil {
			return nil, err
		}
	}

	now := u.now()
	var (
		out       *domain.Repayment
		completed bool
	)
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.BorrowerID != in.BorrowerID {
			return errs.Authorization("borrower_mismatch", "loan %s does not belong to borrower %s", l.LoanID, in.BorrowerID)
		}
		if l.Status == domainLoan.StatusCompleted {
			return errs.InvalidState("loan_completed", "loan %s is already completed", l.LoanID)
		}
		newRemaining := l.Outstanding().Sub(in.Amount)
		if newRemaining.IsNegative() {
			return errs.Validation("amount_exceeds_remaining",
				"amount %s exceeds remaining %s", in.Amount.StringFixed(money.Scale), l.Outstanding().StringFixed(money.Scale))
		}

		rp := &domain.Repayment{
			RepaymentID:     id.NewID32(),
			LoanID:          l.LoanID,
			BorrowerID:      l.BorrowerID,
			BorrowerContact: in.BorrowerContact,
			Amount:          in.Amount,
			DueDate:         domain.DateOf(now),
			Status:          in.Status,
			Type:            in.Type,
		}
		if rp.BorrowerContact == "" {
			rp.BorrowerContact = l.BorrowerContact
		}
		if !in.DueDate.IsZero() {
			rp.DueDate = domain.DateOf(in.DueDate)
		}
		if rp.Status == domain.StatusPaid {
			rp.MarkPaid(now)
		}
		if err := r.Repayments.Create(ctx, rp); err != nil {
			return err
		}

		l.RepaidAmount = l.RepaidAmount.Add(in.Amount)
		l.RemainingAmount = newRemaining
		// FULL closes the loan even when a balance remains.
		if newRemaining.IsZero() || in.Type == domain.TypeFull {
			l.SetStatus(domainLoan.StatusCompleted, now)
			l.RepaymentStatus = domainLoan.RepaymentCompleted
			completed = true
		} else if l.Status != domainLoan.StatusDefaulted {
			l.RepaymentStatus = domainLoan.RepaymentInProgress
		}
		l.UpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		remaining := newRemaining
		intent := outbox.NewIntent(outbox.KindRepaymentSuccess, rp.BorrowerContact, outbox.Payload{
			LoanID:          l.LoanID,
			RepaymentID:     rp.RepaymentID,
			Amount:          rp.Amount,
			RemainingAmount: &remaining,
		}, now)
		if _, err := r.Outbox.Enqueue(ctx, intent); err != nil {
			return err
		}
		out = rp
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, errs.NotFound("loan_not_found", "loan %s not found", in.LoanID))
	}

	u.log.Info("repayment applied",
		zap.String("loan_id", out.LoanID),
		zap.String("repayment_id", out.RepaymentID),
		zap.String("amount", out.Amount.String()),
		zap.Bool("loan_completed", completed),
	)
	u.wake()
	return toDTO(out), nil
}

// SettleRepayment marks a repayment PAID. Settling a PAID repayment
// returns it unchanged.
func (u *Usecase) SettleRepayment(ctx context.Context, repaymentID string) (*RepaymentDTO, error) {
	if err := requireID("repayment_id", repaymentID); err != nil {
		return nil, err
	}
	now := u.now()
	var out *domain.Repayment
	err := u.uow.WithinRepaymentTx(ctx, repaymentID, func(r uow.Repos, rp *domain.Repayment) error {
		out = rp
		if rp.Status == domain.StatusPaid {
			return nil
		}
		if !rp.CanTransitionTo(domain.StatusPaid) {
			return errs.InvalidState("repayment_not_payable", "repayment %s is %s and cannot be paid", rp.RepaymentID, rp.Status)
		}
		rp.MarkPaid(now)
		return r.Repayments.Save(ctx, rp)
	})
	if err != nil {
		return nil, errs.FromStore(err, errs.NotFound("repayment_not_found", "repayment %s not found", repaymentID))
	}
	return toDTO(out), nil
}

// MarkOverdue moves a PENDING repayment to OVERDUE and enqueues the
// overdue intent. Any status the lifecycle does not allow to become OVERDUE
// is a no-op returning false.
func (u *Usecase) MarkOverdue(ctx context.Context, repaymentID string) (bool, error) {
	now := u.now()
	changed := false
	err := u.uow.WithinRepaymentTx(ctx, repaymentID, func(r uow.Repos, rp *domain.Repayment) error {
		if !rp.CanTransitionTo(domain.StatusOverdue) {
			return nil
		}
		rp.Status = domain.StatusOverdue
		if err := r.Repayments.Save(ctx, rp); err != nil {
			return err
		}
		due := rp.DueDate
		intent := outbox.NewIntent(outbox.KindOverdue, rp.BorrowerContact, outbox.Payload{
			LoanID:      rp.LoanID,
			RepaymentID: rp.RepaymentID,
			Amount:      rp.Amount,
			DueDate:     &due,
		}, now)
		if _, err := r.Outbox.Enqueue(ctx, intent); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, errs.FromStore(err, errs.NotFound("repayment_not_found", "repayment %s not found", repaymentID))
	}
	if changed {
		u.log.Info("repayment overdue", zap.String("repayment_id", repaymentID))
		u.wake()
	}
	return changed, nil
}

// DefaultLoan writes off a FUNDED or ACTIVE loan. Payments are still
// accepted afterwards; the repayment status stays DEFAULTED until the loan
// is closed.
func (u *Usecase) DefaultLoan(ctx context.Context, loanID string) (*loanUsecase.LoanDTO, error) {
	if err := requireID("loan_id", loanID); err != nil {
		return nil, err
	}
	now := u.now()
	var dto *loanUsecase.LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if !l.CanTransitionTo(domainLoan.StatusDefaulted) {
			return errs.InvalidState("loan_not_defaultable", "loan %s is %s and cannot be defaulted", l.LoanID, l.Status)
		}
		l.SetStatus(domainLoan.StatusDefaulted, now)
		l.RepaymentStatus = domainLoan.RepaymentDefaulted
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = loanUsecase.ToDTO(l)
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, errs.NotFound("loan_not_found", "loan %s not found", loanID))
	}
	u.log.Warn("loan defaulted",
		zap.String("loan_id", loanID),
		zap.String("remaining", dto.RemainingAmount.String()),
	)
	return dto, nil
}

// DueBefore lists PENDING repayments due strictly before day.
func (u *Usecase) DueBefore(ctx context.Context, day time.Time) ([]domain.Repayment, error) {
	rs, err := u.repayments.ListDueBeforeWithStatus(ctx, domain.DateOf(day), domain.StatusPending)
	return rs, errs.FromStore(err, nil)
}

func (u *Usecase) ListByBorrower(ctx context.Context, borrowerID string) ([]RepaymentDTO, error) {
	if err := requireID("borrower_id", borrowerID); err != nil {
		return nil, err
	}
	rs, err := u.repayments.ListByBorrowerID(ctx, borrowerID)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(rs), nil
}

func (u *Usecase) ListPendingByBorrower(ctx context.Context, borrowerID string) ([]RepaymentDTO, error) {
	if err := requireID("borrower_id", borrowerID); err != nil {
		return nil, err
	}
	rs, err := u.repayments.ListByBorrowerAndStatus(ctx, borrowerID, domain.StatusPending)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(rs), nil
}

// ListByDateRange returns the borrower's repayments due within [start, end].
func (u *Usecase) ListByDateRange(ctx context.Context, borrowerID string, start, end time.Time) ([]RepaymentDTO, error) {
	if err := requireID("borrower_id", borrowerID); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, errs.Validation("date_range_required", "start and end dates are required")
	}
	if domain.DateOf(start).After(domain.DateOf(end)) {
		return nil, errs.Validation("date_range_invalid", "start must not be after end")
	}
	rs, err := u.repayments.ListByBorrowerDueBetween(ctx, borrowerID, start, end)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(rs), nil
}

func (u *Usecase) ListByLoan(ctx context.Context, loanID string) ([]RepaymentDTO, error) {
	if err := requireID("loan_id", loanID); err != nil {
		return nil, err
	}
	rs, err := u.repayments.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	return toDTOs(rs), nil
}
