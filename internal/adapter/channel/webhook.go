package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"loanledger/internal/domain/errs"
	"loanledger/internal/usecase/notification"
)

type webhookPayload struct {
	EventKey string `json:"event_key"`
	Kind     string `json:"kind"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// Webhook POSTs each message as JSON. The event key travels in the
// Idempotency-Key header so the receiver can drop duplicates.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Send(ctx context.Context, m notification.Message) error {
	body, err := json.Marshal(webhookPayload{
		EventKey: m.EventKey,
		Kind:     string(m.Kind),
		To:       m.To,
		Subject:  m.Subject,
		Body:     m.Body,
	})
	if err != nil {
		return errs.Validation("payload_invalid", "encode webhook payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errs.Validation("webhook_url_invalid", "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", m.EventKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return errs.TransientDelivery(fmt.Errorf("post webhook: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errs.TransientDelivery(fmt.Errorf("webhook responded %d", resp.StatusCode))
	default:
		return errs.Validation("webhook_rejected", "webhook responded %d", resp.StatusCode)
	}
}
