package invoices

import "github.com/google/uuid"

// CreateRequest converts an approved quote.
type CreateRequest struct {
	QuoteID uuid.UUID `json:"quote_id" validate:"required"`
	Notes   string    `json:"notes" validate:"max=2000"`
}

// CancelRequest carries the optional cancellation note.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
