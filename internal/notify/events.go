// Package notify fans quote and invoice events out to background tasks.
// Delivery is best effort: callers log failures and carry on.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteEvent describes a quote status change.
type QuoteEvent struct {
	QuoteID     uuid.UUID       `json:"quote_id"`
	QuoteNumber string          `json:"quote_number"`
	ClientID    uuid.UUID       `json:"client_id"`
	Status      string          `json:"status"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	Reason      string          `json:"reason,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// InvoiceEvent describes an invoice status change.
type InvoiceEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	QuoteID       uuid.UUID       `json:"quote_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Total         decimal.Decimal `json:"total"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
}

// Dispatcher delivers workflow events to people and external systems.
type Dispatcher interface {
	QuoteSubmitted(ctx context.Context, evt QuoteEvent) error
	QuoteApproved(ctx context.Context, evt QuoteEvent) error
	QuoteRejected(ctx context.Context, evt QuoteEvent) error
	QuoteCancelled(ctx context.Context, evt QuoteEvent) error
	InvoiceSent(ctx context.Context, evt InvoiceEvent) error
}

// NopDispatcher drops every event.
type NopDispatcher struct{}

func (NopDispatcher) QuoteSubmitted(context.Context, QuoteEvent) error { return nil }
func (NopDispatcher) QuoteApproved(context.Context, QuoteEvent) error  { return nil }
func (NopDispatcher) QuoteRejected(context.Context, QuoteEvent) error  { return nil }
func (NopDispatcher) QuoteCancelled(context.Context, QuoteEvent) error { return nil }
func (NopDispatcher) InvoiceSent(context.Context, InvoiceEvent) error  { return nil }
