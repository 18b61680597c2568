// Package contact validates borrower contact addresses.
package contact

import (
	"strings"

	"loanledger/internal/domain/errs"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// Validate accepts a syntactically valid email address. The dispatcher
// calls it before sending so a malformed snapshot fails without retry.
func Validate(c string) error {
	if strings.TrimSpace(c) == "" {
		return errs.Validation("contact_required", "borrower contact is required")
	}
	if err := v.Var(c, "email"); err != nil {
		return errs.Validation("contact_invalid", "borrower contact %q is not a valid email", c)
	}
	return nil
}
