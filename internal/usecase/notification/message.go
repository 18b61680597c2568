package notification

import (
	"context"

	"loanledger/internal/domain/errs"
	"loanledger/internal/domain/outbox"
)

type Message struct {
	EventKey string
	Kind     outbox.Kind
	To       string
	Subject  string
	Body     string
}

// Channel delivers one rendered message. Errors of kind Validation (and
// the other client-side kinds) are final; anything else is retried.
type Channel interface {
	Send(ctx context.Context, m Message) error
}

// Deduper remembers event keys that were sent. The mark is written before the
// delivered state is saved, so a redelivery after a crash in between does not
// reach the borrower twice.
type Deduper interface {
	Seen(ctx context.Context, eventKey string) (bool, error)
	Mark(ctx context.Context, eventKey string) error
}

// Retryable reports whether a failed send is worth another attempt.
func Retryable(err error) bool {
	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindAuthorization, errs.KindNotFound, errs.KindInvalidState:
		return false
	}
	return true
}
