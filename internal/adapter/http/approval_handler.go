package http

import (
	"net/http"
	"time"

	"loanledger/internal/usecase/approval"

	"github.com/labstack/echo/v4"
)

type ApprovalHandler struct{ uc *approval.Usecase }

func NewApprovalHandler(uc *approval.Usecase) *ApprovalHandler { return &ApprovalHandler{uc: uc} }

type approveLoanReq struct {
	ApproverID string `json:"approver_id"   validate:"required,max=32"`
	Note       string `json:"note"          validate:"max=255"`
	// date-only, defaults to today
	ApprovalDate string `json:"approval_date" validate:"omitempty,datetime=2006-01-02"`
}

type rejectLoanReq struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

func (h *ApprovalHandler) ApproveLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req approveLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	in := approval.ApproveInput{LoanID: loanID, ApproverID: req.ApproverID, Note: req.Note}
	if req.ApprovalDate != "" {
		in.ApprovalDate, _ = time.Parse(dateLayout, req.ApprovalDate)
	}
	dto, err := h.uc.Approve(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApprovalHandler) RejectLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req rejectLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Reject(c.Request().Context(), approval.RejectInput{LoanID: loanID, Reason: req.Reason})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
