package mysql

import (
	"context"
	"testing"
	"time"

	domain "loanledger/internal/domain/repayment"
	"loanledger/internal/testutil/dbtest"
	"loanledger/pkg/id"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func makeRepayment(loanID, borrowerID string, due time.Time, status domain.Status) *domain.Repayment {
	return &domain.Repayment{
		RepaymentID:     id.NewID32(),
		LoanID:          loanID,
		BorrowerID:      borrowerID,
		BorrowerContact: "b@example.com",
		Amount:          decimal.RequireFromString("100.00"),
		DueDate:         due,
		Status:          status,
		Type:            domain.TypePartial,
	}
}

func seedRepayments(t *testing.T, repo *RepaymentRepository, rps ...*domain.Repayment) {
	t.Helper()
	for _, rp := range rps {
		if err := repo.Create(context.Background(), rp); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
}

func TestRepaymentRepository_GetAndSave(t *testing.T) {
	repo := NewRepaymentRepository(dbtest.Open(t))
	ctx := context.Background()

	rp := makeRepayment(id.NewID32(), id.NewID32(), day(2026, 3, 1), domain.StatusPending)
	seedRepayments(t, repo, rp)

	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	rp.MarkPaid(now)
	if err := repo.Save(ctx, rp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByRepaymentIDForUpdate(ctx, rp.RepaymentID)
	if err != nil {
		t.Fatalf("GetByRepaymentIDForUpdate: %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want PAID", got.Status)
	}
	if got.PaymentDate == nil || !got.PaymentDate.Equal(day(2026, 3, 2)) {
		t.Fatalf("payment date = %v", got.PaymentDate)
	}
	if !got.Amount.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("amount = %s", got.Amount)
	}
}

func TestRepaymentRepository_Queries(t *testing.T) {
	repo := NewRepaymentRepository(dbtest.Open(t))
	ctx := context.Background()
	loanID, borrower := id.NewID32(), id.NewID32()

	late := makeRepayment(loanID, borrower, day(2026, 1, 10), domain.StatusPending)
	early := makeRepayment(loanID, borrower, day(2026, 1, 5), domain.StatusPending)
	paid := makeRepayment(loanID, borrower, day(2026, 1, 20), domain.StatusPaid)
	future := makeRepayment(loanID, borrower, day(2026, 2, 1), domain.StatusPending)
	foreign := makeRepayment(id.NewID32(), id.NewID32(), day(2026, 1, 1), domain.StatusPending)
	seedRepayments(t, repo, late, early, paid, future, foreign)

	all, err := repo.ListByBorrowerID(ctx, borrower)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListByBorrowerID = %d, %v", len(all), err)
	}

	byLoan, err := repo.ListByLoanID(ctx, loanID)
	if err != nil || len(byLoan) != 4 {
		t.Fatalf("ListByLoanID = %d, %v", len(byLoan), err)
	}

	pending, err := repo.ListByBorrowerAndStatus(ctx, borrower, domain.StatusPending)
	if err != nil {
		t.Fatalf("ListByBorrowerAndStatus: %v", err)
	}
	if len(pending) != 3 || pending[0].RepaymentID != early.RepaymentID || pending[1].RepaymentID != late.RepaymentID {
		t.Fatalf("pending not ordered by due date: %+v", pending)
	}

	// both bounds inclusive
	ranged, err := repo.ListByBorrowerDueBetween(ctx, borrower, day(2026, 1, 5), day(2026, 1, 20))
	if err != nil {
		t.Fatalf("ListByBorrowerDueBetween: %v", err)
	}
	if len(ranged) != 3 {
		t.Fatalf("ranged = %d, want 3", len(ranged))
	}

	// strictly before the cutoff day
	due, err := repo.ListDueBeforeWithStatus(ctx, day(2026, 1, 10), domain.StatusPending)
	if err != nil {
		t.Fatalf("ListDueBeforeWithStatus: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due before = %d, want 2 (early + foreign)", len(due))
	}
}
