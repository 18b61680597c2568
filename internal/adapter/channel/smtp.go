package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"loanledger/internal/domain/errs"
	"loanledger/internal/usecase/notification"

	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends HTML mail. A 5xx reply is permanent, 4xx replies and network
// failures are transient.
type SMTP struct {
	cfg  SMTPConfig
	log  *zap.Logger
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTP(cfg SMTPConfig, log *zap.Logger) *SMTP {
	if log == nil {
		log = zap.NewNop()
	}
	d := &net.Dialer{}
	return &SMTP{cfg: cfg, log: log, dial: d.DialContext}
}

func (s *SMTP) Send(ctx context.Context, m notification.Message) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return errs.TransientDelivery(fmt.Errorf("dial %s: %w", addr, err))
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	// unblock the conversation if ctx is cancelled without a deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return classifySMTP("greeting", err)
	}
	defer c.Close()

	if s.cfg.Username != "" {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(nil); err != nil {
				return classifySMTP("starttls", err)
			}
		}
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return classifySMTP("auth", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return classifySMTP("mail from", err)
	}
	if err := c.Rcpt(m.To); err != nil {
		return classifySMTP("rcpt to", err)
	}
	w, err := c.Data()
	if err != nil {
		return classifySMTP("data", err)
	}
	if _, err := w.Write(buildMIME(s.cfg.From, m)); err != nil {
		return classifySMTP("write body", err)
	}
	if err := w.Close(); err != nil {
		return classifySMTP("end data", err)
	}
	// the message is queued once DATA is acknowledged
	if err := c.Quit(); err != nil {
		s.log.Warn("smtp quit failed after message accepted",
			zap.String("event_key", m.EventKey), zap.Error(err))
	}
	return nil
}

func buildMIME(from string, m notification.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "X-Event-Key: %s\r\n", m.EventKey)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(m.Body)
	return b.Bytes()
}

func classifySMTP(stage string, err error) error {
	var tp *textproto.Error
	if errors.As(err, &tp) && tp.Code >= 500 {
		return errs.Validation("smtp_rejected", "smtp %s rejected: %d %s", stage, tp.Code, tp.Msg)
	}
	return errs.TransientDelivery(fmt.Errorf("smtp %s: %w", stage, err))
}
