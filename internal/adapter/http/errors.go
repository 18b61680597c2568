package http

import (
	"errors"
	"net/http"

	"loanledger/internal/domain/errs"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

func statusFor(k errs.Kind) int {
	switch k {
	case errs.KindValidation, errs.KindInvalidState:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAuthorization:
		return http.StatusForbidden
	case errs.KindTransientDelivery:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a usecase error. Store failures are not echoed back.
func writeError(c echo.Context, err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	status := statusFor(e.Kind)
	msg := e.Msg
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		msg = "internal error"
	}
	return c.JSON(status, ErrorResponse{Error: msg, Code: e.Code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Code:    "validation_failed",
		Details: ToFieldErrors(err),
	})
}

// bindValid binds the body into req and runs the registered validator.
// It writes the error response itself; ok is false when it did.
func bindValid(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}
