package channel

import (
	"context"

	"loanledger/internal/usecase/notification"

	"go.uber.org/zap"
)

// Log writes notifications to the service log instead of sending them.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log}
}

func (l *Log) Send(ctx context.Context, m notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.log.Info("notification",
		zap.String("event_key", m.EventKey),
		zap.String("kind", string(m.Kind)),
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}
