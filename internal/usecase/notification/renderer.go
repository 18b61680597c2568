package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"loanledger/internal/domain/errs"
	"loanledger/internal/domain/money"
	"loanledger/internal/domain/outbox"
)

//go:embed templates/*.html
var templateFS embed.FS

type Links struct {
	DashboardURL string
	RepaymentURL string
}

type Renderer struct {
	byKind map[outbox.Kind]*template.Template
	links  Links
}

type view struct {
	LoanID       string
	RepaymentID  string
	Amount       string
	Remaining    string
	DueDate      string
	DashboardURL string
	RepaymentURL string
}

func NewRenderer(links Links) (*Renderer, error) {
	r := &Renderer{byKind: map[outbox.Kind]*template.Template{}, links: links}
	for _, k := range []outbox.Kind{outbox.KindRepaymentSuccess, outbox.KindLoanApproved, outbox.KindOverdue} {
		t, err := template.ParseFS(templateFS, "templates/"+string(k)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", k, err)
		}
		r.byKind[k] = t
	}
	return r, nil
}

// Render builds the subject and HTML body for an intent.
func (r *Renderer) Render(i *outbox.Intent) (Message, error) {
	t, ok := r.byKind[i.Kind]
	if !ok {
		return Message{}, errs.Validation("kind_unknown", "no template for notification kind %q", i.Kind)
	}
	v := view{
		LoanID:       i.Payload.LoanID,
		RepaymentID:  i.Payload.RepaymentID,
		Amount:       i.Payload.Amount.StringFixed(money.Scale),
		DashboardURL: r.links.DashboardURL,
		RepaymentURL: r.links.RepaymentURL,
	}
	if i.Payload.RemainingAmount != nil {
		v.Remaining = i.Payload.RemainingAmount.StringFixed(money.Scale)
	}
	if i.Payload.DueDate != nil {
		v.DueDate = i.Payload.DueDate.Format("2006-01-02")
	}

	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", v); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := t.ExecuteTemplate(&body, "body", v); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}
	return Message{
		EventKey: i.EventKey,
		Kind:     i.Kind,
		To:       i.Contact,
		Subject:  strings.TrimSpace(subject.String()),
		Body:     body.String(),
	}, nil
}
