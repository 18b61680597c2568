package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"loanledger/internal/domain/outbox"
	"loanledger/internal/usecase/notification"
	"loanledger/internal/usecase/overdue"

	"github.com/labstack/echo/v4"
)

const (
	defaultFailedLimit = 50
	maxFailedLimit     = 500
)

type OutboxAdmin interface {
	ListFailed(ctx context.Context, limit int) ([]outbox.Intent, error)
	Redrive(ctx context.Context, id uint64) (*outbox.Intent, error)
	Stats(ctx context.Context) (notification.Stats, error)
}

type ScanRunner interface {
	Run(ctx context.Context) (overdue.Report, error)
}

type AdminHandler struct {
	outbox  OutboxAdmin
	scanner ScanRunner
}

func NewAdminHandler(o OutboxAdmin, s ScanRunner) *AdminHandler {
	return &AdminHandler{outbox: o, scanner: s}
}

func (h *AdminHandler) ListFailed(c echo.Context) error {
	limit := defaultFailedLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(n, maxFailedLimit)
	}
	rows, err := h.outbox.ListFailed(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	if rows == nil {
		rows = []outbox.Intent{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *AdminHandler) Redrive(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "id must be a positive integer")
	}
	it, err := h.outbox.Redrive(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.outbox.Stats(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// RunScan triggers an overdue scan now. Row-level failures are reported in
// the body; the scan itself still answers 200.
func (h *AdminHandler) RunScan(c echo.Context) error {
	rep, err := h.scanner.Run(c.Request().Context())
	if errors.Is(err, overdue.ErrAlreadyRunning) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "scan_in_progress"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}
