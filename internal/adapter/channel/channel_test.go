package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"loanledger/internal/domain/errs"
	"loanledger/internal/domain/outbox"
	"loanledger/internal/usecase/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampleMessage() notification.Message {
	return notification.Message{
		EventKey: "repayment_success:L-1:R-1",
		Kind:     outbox.KindRepaymentSuccess,
		To:       "borrower@example.com",
		Subject:  "Repayment received",
		Body:     "<p>thanks</p>",
	}
}

func TestLog_Send(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ch := NewLog(zap.New(core))

	require.NoError(t, ch.Send(context.Background(), sampleMessage()))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "repayment_success:L-1:R-1", fields["event_key"])
	assert.Equal(t, "borrower@example.com", fields["to"])
}

func TestLog_SendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLog(nil).Send(ctx, sampleMessage()), context.Canceled)
}

func TestWebhook_Send(t *testing.T) {
	var got webhookPayload
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, srv.Client()).Send(context.Background(), sampleMessage())
	require.NoError(t, err)
	assert.Equal(t, "repayment_success:L-1:R-1", key)
	assert.Equal(t, "repayment_success", got.Kind)
	assert.Equal(t, "borrower@example.com", got.To)
}

func TestWebhook_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewWebhook(srv.URL, srv.Client()).Send(context.Background(), sampleMessage())
			require.Error(t, err)
			assert.Equal(t, tt.retryable, notification.Retryable(err))
		})
	}
}

func TestWebhook_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewWebhook(url, nil).Send(context.Background(), sampleMessage())
	assert.ErrorIs(t, err, errs.ErrTransientDelivery)
}

// fakeSMTP speaks just enough SMTP for net/smtp. rcptCode is the reply to
// RCPT TO; zero means 250. dropOnQuit hangs up instead of answering QUIT.
type fakeSMTP struct {
	ln         net.Listener
	rcptCode   int
	stall      bool
	dropOnQuit bool

	mu   sync.Mutex
	data string
}

func startFakeSMTP(t *testing.T, rcptCode int, stall bool) *fakeSMTP {
	t.Helper()
	return serveFakeSMTP(t, &fakeSMTP{rcptCode: rcptCode, stall: stall})
}

func serveFakeSMTP(t *testing.T, f *fakeSMTP) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f.ln = ln
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) config() SMTPConfig {
	host, port, _ := net.SplitHostPort(f.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return SMTPConfig{Host: host, Port: p, From: "ledger@example.com"}
}

func (f *fakeSMTP) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	if f.stall {
		_, _ = bufio.NewReader(conn).ReadString('\n')
		return
	}
	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 fake")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			reply("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			if f.rcptCode != 0 {
				reply(strconv.Itoa(f.rcptCode) + " no thanks")
				continue
			}
			reply("250 ok")
		case cmd == "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			f.mu.Lock()
			f.data = b.String()
			f.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			if f.dropOnQuit {
				return
			}
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func (f *fakeSMTP) received() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

func TestSMTP_Send(t *testing.T) {
	f := startFakeSMTP(t, 0, false)

	require.NoError(t, NewSMTP(f.config(), nil).Send(context.Background(), sampleMessage()))
	data := f.received()
	assert.Contains(t, data, "To: borrower@example.com")
	assert.Contains(t, data, "X-Event-Key: repayment_success:L-1:R-1")
	assert.Contains(t, data, "Content-Type: text/html")
	assert.Contains(t, data, "<p>thanks</p>")
}

func TestSMTP_QuitFailureAfterAcceptIsDelivered(t *testing.T) {
	f := serveFakeSMTP(t, &fakeSMTP{dropOnQuit: true})
	core, logs := observer.New(zap.WarnLevel)

	err := NewSMTP(f.config(), zap.New(core)).Send(context.Background(), sampleMessage())
	require.NoError(t, err)
	assert.Contains(t, f.received(), "X-Event-Key: repayment_success:L-1:R-1")
	assert.Equal(t, 1, logs.FilterMessage("smtp quit failed after message accepted").Len())
}

func TestSMTP_PermanentRejection(t *testing.T) {
	f := startFakeSMTP(t, 550, false)

	err := NewSMTP(f.config(), nil).Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.False(t, notification.Retryable(err))
}

func TestSMTP_TemporaryRejection(t *testing.T) {
	f := startFakeSMTP(t, 451, false)

	err := NewSMTP(f.config(), nil).Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransientDelivery)
	assert.True(t, notification.Retryable(err))
}

func TestSMTP_HonoursDeadline(t *testing.T) {
	f := startFakeSMTP(t, 0, true)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := NewSMTP(f.config(), nil).Send(ctx, sampleMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransientDelivery)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTP_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	ch := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "ledger@example.com"}, nil)
	err = ch.Send(context.Background(), sampleMessage())
	assert.True(t, errors.Is(err, errs.ErrTransientDelivery))
}
