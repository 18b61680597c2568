package http

import (
	"context"
	"net/http"
	"time"

	domain "loanledger/internal/domain/repayment"
	"loanledger/internal/usecase/loan"
	"loanledger/internal/usecase/repayment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type RepaymentService interface {
	CreateRepaymentPlan(ctx context.Context, in repayment.CreatePlanInput) (*repayment.RepaymentDTO, error)
	ApplyRepayment(ctx context.Context, in repayment.ApplyInput) (*repayment.RepaymentDTO, error)
	SettleRepayment(ctx context.Context, repaymentID string) (*repayment.RepaymentDTO, error)
	ListByBorrower(ctx context.Context, borrowerID string) ([]repayment.RepaymentDTO, error)
	ListPendingByBorrower(ctx context.Context, borrowerID string) ([]repayment.RepaymentDTO, error)
	ListByDateRange(ctx context.Context, borrowerID string, start, end time.Time) ([]repayment.RepaymentDTO, error)
	ListByLoan(ctx context.Context, loanID string) ([]repayment.RepaymentDTO, error)
	DefaultLoan(ctx context.Context, loanID string) (*loan.LoanDTO, error)
}

type RepaymentHandler struct{ svc RepaymentService }

func NewRepaymentHandler(svc RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{svc: svc}
}

type createPlanReq struct {
	LoanID          string          `json:"loan_id"          validate:"required,max=32"`
	BorrowerID      string          `json:"borrower_id"      validate:"required,max=32"`
	BorrowerContact string          `json:"borrower_contact" validate:"required,email"`
	Amount          decimal.Decimal `json:"amount"           validate:"amount"`
	DueDate         string          `json:"due_date"         validate:"required,datetime=2006-01-02"`
	Type            string          `json:"repayment_type"   validate:"required,oneof=FULL PARTIAL"`
}

type payReq struct {
	LoanID          string          `json:"loan_id"          validate:"required,max=32"`
	BorrowerID      string          `json:"borrower_id"      validate:"required,max=32"`
	BorrowerContact string          `json:"borrower_contact" validate:"omitempty,email"`
	Amount          decimal.Decimal `json:"amount"           validate:"amount"`
	DueDate         string          `json:"due_date"         validate:"omitempty,datetime=2006-01-02"`
	Status          string          `json:"status"           validate:"omitempty,oneof=PENDING PAID OVERDUE"`
	Type            string          `json:"repayment_type"   validate:"required,oneof=FULL PARTIAL"`
}

func (h *RepaymentHandler) CreatePlan(c echo.Context) error {
	var req createPlanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	due, _ := time.Parse(dateLayout, req.DueDate)
	dto, err := h.svc.CreateRepaymentPlan(c.Request().Context(), repayment.CreatePlanInput{
		LoanID:          req.LoanID,
		BorrowerID:      req.BorrowerID,
		BorrowerContact: req.BorrowerContact,
		Amount:          req.Amount,
		DueDate:         due,
		Type:            domain.Type(req.Type),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *RepaymentHandler) Pay(c echo.Context) error {
	var req payReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	in := repayment.ApplyInput{
		LoanID:          req.LoanID,
		BorrowerID:      req.BorrowerID,
		BorrowerContact: req.BorrowerContact,
		Amount:          req.Amount,
		Status:          domain.Status(req.Status),
		Type:            domain.Type(req.Type),
	}
	if req.DueDate != "" {
		in.DueDate, _ = time.Parse(dateLayout, req.DueDate)
	}
	dto, err := h.svc.ApplyRepayment(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *RepaymentHandler) Settle(c echo.Context) error {
	dto, err := h.svc.SettleRepayment(c.Request().Context(), c.Param("repayment_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RepaymentHandler) ListByBorrower(c echo.Context) error {
	out, err := h.svc.ListByBorrower(c.Request().Context(), c.Param("borrower_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RepaymentHandler) ListPending(c echo.Context) error {
	out, err := h.svc.ListPendingByBorrower(c.Request().Context(), c.Param("borrower_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListByDateRange expects ?start=YYYY-MM-DD&end=YYYY-MM-DD, both inclusive.
func (h *RepaymentHandler) ListByDateRange(c echo.Context) error {
	start, err := parseDateParam(c.QueryParam("start"))
	if err != nil {
		return badRequest(c, "start must be a date in 2006-01-02 format")
	}
	end, err := parseDateParam(c.QueryParam("end"))
	if err != nil {
		return badRequest(c, "end must be a date in 2006-01-02 format")
	}
	out, err := h.svc.ListByDateRange(c.Request().Context(), c.Param("borrower_id"), start, end)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RepaymentHandler) ListByLoan(c echo.Context) error {
	out, err := h.svc.ListByLoan(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RepaymentHandler) DefaultLoan(c echo.Context) error {
	dto, err := h.svc.DefaultLoan(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// parseDateParam leaves a missing value as the zero time so the usecase
// reports it.
func parseDateParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, v)
}
