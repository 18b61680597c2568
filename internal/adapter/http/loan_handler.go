package http

import (
	"net/http"
	"time"

	"loanledger/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createLoanReq struct {
	BorrowerID      string          `json:"borrower_id"      validate:"required,max=32"`
	BorrowerContact string          `json:"borrower_contact" validate:"required,email"`
	Principal       decimal.Decimal `json:"principal"        validate:"amount"`
	TermMonths      int             `json:"term_months"      validate:"required,gt=0"`
	InterestRate    decimal.Decimal `json:"interest_rate"    validate:"nonneg"`
	Purpose         string          `json:"purpose"          validate:"max=255"`
	Description     string          `json:"description"`
	RiskScore       *int            `json:"risk_score"       validate:"omitempty,gte=0,lte=100"`
	FundingDeadline string          `json:"funding_deadline" validate:"omitempty,datetime=2006-01-02"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	in := loan.ApplyLoanInput{
		BorrowerID:      req.BorrowerID,
		BorrowerContact: req.BorrowerContact,
		Principal:       req.Principal,
		TermMonths:      req.TermMonths,
		InterestRate:    req.InterestRate,
		Purpose:         req.Purpose,
		Description:     req.Description,
		RiskScore:       req.RiskScore,
	}
	if req.FundingDeadline != "" {
		d, _ := time.Parse(dateLayout, req.FundingDeadline)
		in.FundingDeadline = &d
	}
	dto, err := h.uc.Apply(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListPending(c echo.Context) error {
	out, err := h.uc.ListPending(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) ListByBorrower(c echo.Context) error {
	out, err := h.uc.ListByBorrower(c.Request().Context(), c.Param("borrower_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
