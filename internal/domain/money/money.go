// Package money holds the amount rules shared by loans and repayments.
package money

import (
	"loanledger/internal/domain/errs"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places a stored amount may carry.
const Scale = 2

// Validate reports a Validation error unless d is positive and fits Scale.
// field names the input in the error code, e.g. "amount_not_positive".
func Validate(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return errs.Validation(field+"_not_positive", "%s must be greater than zero", field)
	}
	if !d.Equal(d.Round(Scale)) {
		return errs.Validation(field+"_precision", "%s must have at most %d decimal places", field, Scale)
	}
	return nil
}
