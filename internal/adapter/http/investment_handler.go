package http

import (
	"context"
	"net/http"

	"loanledger/internal/usecase/investment"
	"loanledger/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type InvestmentService interface {
	Invest(ctx context.Context, in investment.InvestInput) (*investment.InvestmentDTO, error)
	Confirm(ctx context.Context, investmentID string) (*investment.ConfirmResult, error)
	Disburse(ctx context.Context, loanID string) (*loan.LoanDTO, error)
	Get(ctx context.Context, investmentID string) (*investment.InvestmentDTO, error)
	ListByInvestor(ctx context.Context, investorID string) ([]investment.InvestmentDTO, error)
	ListByLoan(ctx context.Context, loanID string) ([]investment.InvestmentDTO, error)
}

type InvestmentHandler struct{ svc InvestmentService }

func NewInvestmentHandler(svc InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{svc: svc}
}

type investReq struct {
	InvestorID string          `json:"investor_id" validate:"required,max=32"`
	LoanID     string          `json:"loan_id"     validate:"required,max=32"`
	Amount     decimal.Decimal `json:"amount"      validate:"amount"`
}

func (h *InvestmentHandler) Invest(c echo.Context) error {
	var req investReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.svc.Invest(c.Request().Context(), investment.InvestInput{
		InvestorID: req.InvestorID,
		LoanID:     req.LoanID,
		Amount:     req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *InvestmentHandler) Confirm(c echo.Context) error {
	res, err := h.svc.Confirm(c.Request().Context(), c.Param("investment_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *InvestmentHandler) Disburse(c echo.Context) error {
	dto, err := h.svc.Disburse(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *InvestmentHandler) Get(c echo.Context) error {
	dto, err := h.svc.Get(c.Request().Context(), c.Param("investment_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *InvestmentHandler) ListByInvestor(c echo.Context) error {
	out, err := h.svc.ListByInvestor(c.Request().Context(), c.Param("investor_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InvestmentHandler) ListByLoan(c echo.Context) error {
	out, err := h.svc.ListByLoan(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
