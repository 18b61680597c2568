package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"loanledger/internal/adapter/repository/mysql"
	"loanledger/internal/domain/approval"
	"loanledger/internal/domain/errs"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/domain/uow"
	"loanledger/internal/testutil/approvalmock"
	"loanledger/internal/testutil/dbtest"
	"loanledger/internal/testutil/loanmock"
	"loanledger/internal/testutil/outboxmock"
	"loanledger/internal/testutil/uowmock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var now = time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)

type wakeCounter struct{ n int }

func (w *wakeCounter) Wake() { w.n++ }

func TestUsecase_Approve(t *testing.T) {
	in := ApproveInput{LoanID: "LN-123", ApproverID: "EMP-9", Note: "docs verified"}

	newLoan := func(s loan.Status) *loan.Loan {
		return &loan.Loan{ID: 777, LoanID: "LN-123", BorrowerContact: "b@example.com",
			Principal: decimal.NewFromInt(5000), Status: s}
	}

	tests := []struct {
		name       string
		status     loan.Status
		missing    bool
		existing   bool
		wantCode   string
		wantIntent bool
	}{
		{name: "pending -> approved", status: loan.StatusPending, wantIntent: true},
		{name: "already approved", status: loan.StatusApproved, wantCode: "loan_already_approved"},
		{name: "active loan", status: loan.StatusActive, wantCode: "loan_not_pending"},
		{name: "approval row exists", status: loan.StatusPending, existing: true, wantCode: "loan_already_approved"},
		{name: "unknown loan", missing: true, wantCode: "loan_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *loan.Loan
			var created *approval.Approval
			loans := &loanmock.Repo{
				GetByLoanIDForUpdateFn: func(context.Context, string) (*loan.Loan, error) {
					if tt.missing {
						return nil, gorm.ErrRecordNotFound
					}
					return newLoan(tt.status), nil
				},
				SaveFn: func(_ context.Context, l *loan.Loan) error { saved = l; return nil },
			}
			apprs := &approvalmock.Repo{
				GetByLoanIDFn: func(context.Context, uint64) (*approval.Approval, error) {
					if tt.existing {
						return &approval.Approval{}, nil
					}
					return nil, gorm.ErrRecordNotFound
				},
				CreateFn: func(_ context.Context, a *approval.Approval) error { created = a; return nil },
			}
			ob := &outboxmock.Repo{}
			w := &wakeCounter{}
			uc := NewUsecase(uowmock.Passthrough(uow.Repos{Loans: loans, Approvals: apprs, Outbox: ob}), w, nil).
				WithClock(func() time.Time { return now })

			dto, err := uc.Approve(context.Background(), in)
			if tt.wantCode != "" {
				var e *errs.Error
				if !errors.As(err, &e) || e.Code != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				if len(ob.Enqueued) != 0 || w.n != 0 {
					t.Fatalf("no intent or wake expected on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Approve: %v", err)
			}
			if saved == nil || saved.Status != loan.StatusApproved || !saved.StatusUpdatedAt.Equal(now) {
				t.Fatalf("loan not approved: %+v", saved)
			}
			if created.LoanID != 777 || created.ApproverID != "EMP-9" {
				t.Fatalf("approval mismatch: %+v", created)
			}
			if !dto.ApprovedAt.Equal(time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("approved_at = %s", dto.ApprovedAt)
			}
			if len(ob.Enqueued) != 1 || ob.Enqueued[0].Kind != outbox.KindLoanApproved || ob.Enqueued[0].EventKey != "loan_approved:LN-123:-" {
				t.Fatalf("unexpected intents: %+v", ob.Enqueued)
			}
			if w.n != 1 {
				t.Fatalf("wake count = %d", w.n)
			}
		})
	}
}

func TestUsecase_Approve_RequiresApprover(t *testing.T) {
	_, err := NewUsecase(&uowmock.UoW{}, nil, nil).Approve(context.Background(), ApproveInput{LoanID: "L"})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUsecase_Reject(t *testing.T) {
	for _, tc := range []struct {
		status loan.Status
		ok     bool
	}{
		{loan.StatusPending, true},
		{loan.StatusApproved, true},
		{loan.StatusActive, false},
		{loan.StatusRejected, false},
	} {
		loans := &loanmock.Repo{
			GetByLoanIDForUpdateFn: func(context.Context, string) (*loan.Loan, error) {
				return &loan.Loan{LoanID: "L1", Status: tc.status}, nil
			},
		}
		uc := NewUsecase(uowmock.Passthrough(uow.Repos{Loans: loans}), nil, nil)
		dto, err := uc.Reject(context.Background(), RejectInput{LoanID: "L1", Reason: "income unverified"})
		if tc.ok {
			if err != nil || dto.Status != "REJECTED" {
				t.Fatalf("%s: Reject = %+v, %v", tc.status, dto, err)
			}
			continue
		}
		if !errors.Is(err, errs.ErrInvalidState) {
			t.Fatalf("%s: expected invalid state, got %v", tc.status, err)
		}
	}
}

func TestIntegration_ApproveWritesAuditAndIntent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	l := &loan.Loan{
		LoanID: "L1", BorrowerID: "B1", BorrowerContact: "b@example.com",
		Principal: decimal.NewFromInt(1000), RemainingAmount: decimal.NewFromInt(1000),
		Status: loan.StatusPending, StatusUpdatedAt: now,
	}
	if err := mysql.NewLoanRepository(db).Create(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	uc := NewUsecase(mysql.NewGormUoW(db), nil, nil).WithClock(func() time.Time { return now })
	if _, err := uc.Approve(ctx, ApproveInput{LoanID: "L1", ApproverID: "EMP-1"}); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := uc.Approve(ctx, ApproveInput{LoanID: "L1", ApproverID: "EMP-2"}); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("second approve should fail, got %v", err)
	}

	got, _ := mysql.NewLoanRepository(db).GetByLoanID(ctx, "L1")
	if got.Status != loan.StatusApproved {
		t.Fatalf("status = %s", got.Status)
	}
	if _, err := mysql.NewApprovalRepository(db).GetByLoanID(ctx, got.ID); err != nil {
		t.Fatalf("approval row missing: %v", err)
	}
	counts, _ := mysql.NewOutboxRepository(db).CountByStatus(ctx)
	if counts[outbox.StatusPending] != 1 {
		t.Fatalf("pending intents = %d, want 1", counts[outbox.StatusPending])
	}
}
