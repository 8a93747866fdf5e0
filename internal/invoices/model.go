package invoices

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/money"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Status of an invoice.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
)

// Invoice bills an approved quote.
type Invoice struct {
	ID                    uuid.UUID       `json:"id"`
	InvoiceNumber         string          `json:"invoice_number"`
	QuoteID               uuid.UUID       `json:"quote_id"`
	ClientID              uuid.UUID       `json:"client_id"`
	Status                Status          `json:"status"`
	NDISParticipantNumber string          `json:"ndis_participant_number,omitempty"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	DiscountAmount        decimal.Decimal `json:"discount_amount"`
	TaxableAmount         decimal.Decimal `json:"taxable_amount"`
	GSTAmount             decimal.Decimal `json:"gst_amount"`
	Total                 decimal.Decimal `json:"total"`
	DepositAmount         decimal.Decimal `json:"deposit_amount"`
	BalanceDue            decimal.Decimal `json:"balance_due"`
	DueDate               time.Time       `json:"due_date"`
	Notes                 string          `json:"notes,omitempty"`
	CreatedBy             uuid.UUID       `json:"created_by"`
	SentAt                *time.Time      `json:"sent_at,omitempty"`
	CancelledAt           *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	Items                 []Item          `json:"items"`
}

// Item is a billed line.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	IsTaxable   bool            `json:"is_taxable"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ListFilter narrows List results.
type ListFilter struct {
	ClientID *uuid.UUID
	QuoteID  *uuid.UUID
	Status   *Status
	Limit    int
	Offset   int
}

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, from, to)
}

// Totals recomputes the invoice amounts from its lines. GST is charged on the
// taxable lines less the discount, never below zero.
func (inv *Invoice) Totals() {
	subtotal := decimal.Zero
	taxable := decimal.Zero
	for _, it := range inv.Items {
		subtotal = subtotal.Add(it.TotalPrice)
		if it.IsTaxable {
			taxable = taxable.Add(it.TotalPrice)
		}
	}
	taxable = taxable.Sub(inv.DiscountAmount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	inv.Subtotal = money.RoundHalfUp(subtotal)
	inv.TaxableAmount = money.RoundHalfUp(taxable)
	inv.GSTAmount = money.GST(inv.TaxableAmount)
	inv.Total = inv.Subtotal.Sub(inv.DiscountAmount).Add(inv.GSTAmount)
	inv.BalanceDue = inv.Total.Sub(inv.DepositAmount)
	if inv.BalanceDue.IsNegative() {
		inv.BalanceDue = decimal.Zero
	}
}

// Send issues a draft invoice.
func (inv *Invoice) Send(now time.Time) error {
	if inv.Status != StatusDraft {
		return invalidTransition(inv.Status, StatusSent)
	}
	inv.Status = StatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	return nil
}

// Cancel voids the invoice. Cancelled invoices are final.
func (inv *Invoice) Cancel(now time.Time) error {
	if inv.Status == StatusCancelled {
		return invalidTransition(inv.Status, StatusCancelled)
	}
	inv.Status = StatusCancelled
	inv.CancelledAt = &now
	inv.UpdatedAt = now
	return nil
}
