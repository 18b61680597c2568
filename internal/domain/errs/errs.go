package errs

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindInvalidState
	KindTransientDelivery
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindInvalidState:
		return "invalid_state"
	case KindTransientDelivery:
		return "transient_delivery"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is the single error type the ledger surfaces. Code is a stable
// machine-readable reason, Msg is for humans.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Code when the target carries one, so the
// package sentinels below match every error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAuthorization     = &Error{Kind: KindAuthorization}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrTransientDelivery = &Error{Kind: KindTransientDelivery}
	ErrPersistence       = &Error{Kind: KindPersistence}
)

func newf(k Kind, code, format string, args ...any) *Error {
	return &Error{Kind: k, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Validation(code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Authorization(code, format string, args ...any) *Error {
	return newf(KindAuthorization, code, format, args...)
}

func InvalidState(code, format string, args ...any) *Error {
	return newf(KindInvalidState, code, format, args...)
}

func TransientDelivery(err error) *Error {
	return &Error{Kind: KindTransientDelivery, Code: "delivery_unavailable", Msg: "delivery failed", Err: err}
}

func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Code: "store_unavailable", Msg: "store failure", Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FromStore normalises an error coming back from a repository call.
// Ledger errors pass through untouched, a missing row becomes notFound
// and everything else is a persistence failure.
func FromStore(err error, notFound *Error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	return Persistence(err)
}
