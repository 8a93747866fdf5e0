package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/sparkleops/sparkle-ops/internal/jobs"
	"github.com/sparkleops/sparkle-ops/internal/money"
	"github.com/sparkleops/sparkle-ops/internal/notify"
)

// Message is an outgoing client email.
type Message struct {
	ClientID uuid.UUID
	Subject  string
	Body     string
}

// Mailer delivers client emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig addresses the outgoing mail relay.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// LogMailer writes messages to the log instead of relaying them. Address
// lookup belongs to the identity service; until it is wired the relay is
// never contacted.
type LogMailer struct {
	Config SMTPConfig
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("send email",
		slog.String("relay", fmt.Sprintf("%s:%d", m.Config.Host, m.Config.Port)),
		slog.String("from", m.Config.From),
		slog.String("client_id", msg.ClientID.String()),
		slog.String("subject", msg.Subject),
		slog.Int("body_len", len(msg.Body)))
	return nil
}

// NotifyHandler turns notification tasks into client emails.
type NotifyHandler struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// QuoteMessage renders the email for a quote notification.
func QuoteMessage(kind string, evt notify.QuoteEvent) (Message, error) {
	msg := Message{ClientID: evt.ClientID}
	price := money.Display(evt.FinalPrice)
	switch kind {
	case notify.KindSubmitted:
		msg.Subject = "We received your quote request " + evt.QuoteNumber
		msg.Body = fmt.Sprintf("Thanks for submitting quote %s for %s. Our team will review it shortly.", evt.QuoteNumber, price)
	case notify.KindApproved:
		msg.Subject = "Your quote " + evt.QuoteNumber + " is approved"
		msg.Body = fmt.Sprintf("Quote %s has been approved at %s (inc. GST).", evt.QuoteNumber, price)
		if evt.ExpiresAt != nil {
			msg.Body += " It is valid until " + evt.ExpiresAt.Format("2 January 2006") + "."
		}
	case notify.KindRejected:
		msg.Subject = "Update on your quote " + evt.QuoteNumber
		msg.Body = fmt.Sprintf("We are unable to proceed with quote %s.", evt.QuoteNumber)
		if evt.Reason != "" {
			msg.Body += " Reason: " + evt.Reason
		}
	case notify.KindCancelled:
		msg.Subject = "Quote " + evt.QuoteNumber + " cancelled"
		msg.Body = fmt.Sprintf("Quote %s has been cancelled.", evt.QuoteNumber)
	default:
		return msg, fmt.Errorf("unknown quote notification %q", kind)
	}
	return msg, nil
}

// InvoiceMessage renders the email for an invoice notification.
func InvoiceMessage(evt notify.InvoiceEvent) Message {
	body := fmt.Sprintf("Invoice %s for %s is attached.", evt.InvoiceNumber, money.Display(evt.Total))
	if evt.DueDate != nil {
		body += " Payment is due by " + evt.DueDate.Format("2 January 2006") + "."
	}
	return Message{ClientID: evt.ClientID, Subject: "Invoice " + evt.InvoiceNumber, Body: body}
}

// HandleQuote processes notify.TaskQuoteNotify.
func (h *NotifyHandler) HandleQuote(ctx context.Context, t *asynq.Task) error {
	var payload notify.QuoteNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	msg, err := QuoteMessage(payload.Kind, payload.Quote)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return h.send(ctx, "quote_"+payload.Kind, msg)
}

// HandleInvoice processes notify.TaskInvoiceNotify.
func (h *NotifyHandler) HandleInvoice(ctx context.Context, t *asynq.Task) error {
	var payload notify.InvoiceNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return h.send(ctx, "invoice_"+payload.Kind, InvoiceMessage(payload.Invoice))
}

func (h *NotifyHandler) send(ctx context.Context, kind string, msg Message) error {
	err := h.Mailer.Send(ctx, msg)
	h.Metrics.Notification(kind, err)
	if err != nil && h.Logger != nil {
		h.Logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
	return err
}

// SyncHandler pushes entity changes to the CRM, accounting and calendar
// systems. The connectors are not configured, so each task is logged and
// acknowledged.
type SyncHandler struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes every sync:* task type.
func (h *SyncHandler) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := h.Metrics.Track(t.Type())
	defer func() { err = tracker.End(err) }()

	var payload notify.SyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("external sync",
		slog.String("target", strings.TrimPrefix(t.Type(), "sync:")),
		slog.String("entity", payload.Entity),
		slog.String("number", payload.Number),
		slog.String("action", payload.Action))
	return ctx.Err()
}
