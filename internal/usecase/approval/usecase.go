package approval

import (
	"context"
	"errors"
	"strings"
	"time"

	domainApproval "loanledger/internal/domain/approval"
	"loanledger/internal/domain/errs"
	domainLoan "loanledger/internal/domain/loan"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/domain/repayment"
	"loanledger/internal/domain/uow"
	loanUsecase "loanledger/internal/usecase/loan"
	"loanledger/pkg/id"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Waker interface {
	Wake()
}

type Usecase struct {
	uow   uow.UnitOfWork
	waker Waker
	log   *zap.Logger
	now   func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, w Waker, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{uow: tx, waker: w, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func loanNotFound(loanID string) *errs.Error {
	return errs.NotFound("loan_not_found", "loan %s not found", loanID)
}

// Approve moves a PENDING loan to APPROVED, records the approval and
// enqueues the loan_approved notification in the same transaction.
func (u *Usecase) Approve(ctx context.Context, in ApproveInput) (*ApprovalDTO, error) {
	if strings.TrimSpace(in.ApproverID) == "" {
		return nil, errs.Validation("approver_id_required", "approver_id is required")
	}
	now := u.now()
	approvalDate := repayment.DateOf(now)
	if !in.ApprovalDate.IsZero() {
		approvalDate = repayment.DateOf(in.ApprovalDate)
	}

	var dto *ApprovalDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.Status == domainLoan.StatusApproved {
			return errs.InvalidState("loan_already_approved", "loan %s is already approved", l.LoanID)
		}
		if l.Status != domainLoan.StatusPending {
			return errs.InvalidState("loan_not_pending", "loan %s is %s, only PENDING loans can be approved", l.LoanID, l.Status)
		}

		if _, err := r.Approvals.GetByLoanID(ctx, l.ID); err == nil {
			return errs.InvalidState("loan_already_approved", "loan %s already has an approval", l.LoanID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		a := &domainApproval.Approval{
			ApprovalID:   id.NewID32(),
			LoanID:       l.ID,
			ApproverID:   in.ApproverID,
			Note:         in.Note,
			ApprovalDate: approvalDate,
		}
		if err := r.Approvals.Create(ctx, a); err != nil {
			return err
		}

		l.SetStatus(domainLoan.StatusApproved, now)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		intent := outbox.NewIntent(outbox.KindLoanApproved, l.BorrowerContact, outbox.Payload{
			LoanID:  l.LoanID,
			Amount:  l.Principal,
			DueDate: l.FundingDeadline,
		}, now)
		if _, err := r.Outbox.Enqueue(ctx, intent); err != nil {
			return err
		}

		dto = &ApprovalDTO{
			ApprovalID: a.ApprovalID,
			LoanID:     l.LoanID,
			ApproverID: a.ApproverID,
			Note:       a.Note,
			ApprovedAt: a.ApprovalDate,
		}
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, loanNotFound(in.LoanID))
	}
	u.log.Info("loan approved", zap.String("loan_id", dto.LoanID), zap.String("approver_id", dto.ApproverID))
	if u.waker != nil {
		u.waker.Wake()
	}
	return dto, nil
}

// Reject closes a PENDING or APPROVED application.
func (u *Usecase) Reject(ctx context.Context, in RejectInput) (*loanUsecase.LoanDTO, error) {
	now := u.now()
	var dto *loanUsecase.LoanDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if !l.CanTransitionTo(domainLoan.StatusRejected) {
			return errs.InvalidState("loan_not_rejectable", "loan %s is %s and cannot be rejected", l.LoanID, l.Status)
		}
		l.SetStatus(domainLoan.StatusRejected, now)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = loanUsecase.ToDTO(l)
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, loanNotFound(in.LoanID))
	}
	u.log.Info("loan rejected", zap.String("loan_id", in.LoanID), zap.String("reason", in.Reason))
	return dto, nil
}
