package quotes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// DefaultExpiry is how long an approved quote stays valid when no explicit
// expiry is supplied.
const DefaultExpiry = 30 * 24 * time.Hour

var (
	ErrReasonRequired = fmt.Errorf("%w: reason required", shared.ErrValidation)
	ErrNotEditable    = fmt.Errorf("%w: quote not editable", shared.ErrConflict)
	ErrQuoteExpired   = fmt.Errorf("%w: quote expired", shared.ErrConflict)
	ErrZeroTotal      = fmt.Errorf("%w: quote total must be positive", shared.ErrValidation)
	// ErrDiscountNotPermitted rejects discount inputs supplied by a client.
	ErrDiscountNotPermitted = fmt.Errorf("%w: discounts are set by staff", shared.ErrValidation)
)

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, from, to)
}

// CanEdit reports whether the client may still change the quote.
func (q *Quote) CanEdit() bool {
	return q.Status == StatusDraft || q.Status == StatusSubmitted
}

func (q *Quote) inReview() bool {
	return q.Status == StatusSubmitted || q.Status == StatusUnderReview
}

// Submit moves a draft quote to submitted.
func (q *Quote) Submit(now time.Time) error {
	if q.Status != StatusDraft {
		return invalidTransition(q.Status, StatusSubmitted)
	}
	q.Status = StatusSubmitted
	q.SubmittedAt = &now
	return nil
}

// StartReview claims a submitted quote for review by staff member by.
func (q *Quote) StartReview(by uuid.UUID, now time.Time) error {
	if q.Status != StatusSubmitted {
		return invalidTransition(q.Status, StatusUnderReview)
	}
	q.Status = StatusUnderReview
	q.ReviewedBy = &by
	q.ReviewedAt = &now
	if q.AssignedTo == nil {
		q.AssignedTo = &by
	}
	return nil
}

// Approve accepts the quote. A nil expiry keeps an existing expires_at or
// defaults it to validity after now.
func (q *Quote) Approve(by uuid.UUID, expiry *time.Time, validity time.Duration, now time.Time) error {
	if !q.inReview() {
		return invalidTransition(q.Status, StatusApproved)
	}
	if validity <= 0 {
		validity = DefaultExpiry
	}
	q.Status = StatusApproved
	q.ApprovedAt = &now
	q.ReviewedBy = &by
	switch {
	case expiry != nil:
		exp := *expiry
		q.ExpiresAt = &exp
	case q.ExpiresAt == nil:
		exp := now.Add(validity)
		q.ExpiresAt = &exp
	}
	return nil
}

// Reject declines the quote with a mandatory reason.
func (q *Quote) Reject(by uuid.UUID, reason string, now time.Time) error {
	if !q.inReview() {
		return invalidTransition(q.Status, StatusRejected)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	q.Status = StatusRejected
	q.ReviewedBy = &by
	q.ReviewedAt = &now
	q.RejectionReason = reason
	q.ExpiresAt = nil
	return nil
}

// IsExpired reports whether an expiry is set and has passed.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.ExpiresAt != nil && q.ExpiresAt.Before(now)
}

// Convert marks an approved quote as turned into an invoice.
func (q *Quote) Convert(now time.Time) error {
	if q.Status != StatusApproved {
		return invalidTransition(q.Status, StatusConverted)
	}
	if q.IsExpired(now) {
		return fmt.Errorf("%w: %s expired at %s", ErrQuoteExpired, q.QuoteNumber, q.ExpiresAt.Format(time.RFC3339))
	}
	if !q.FinalPrice.GreaterThan(decimal.Zero) {
		return ErrZeroTotal
	}
	q.Status = StatusConverted
	q.ConvertedAt = &now
	return nil
}

// Expire closes an approved quote whose expiry has passed.
func (q *Quote) Expire(now time.Time) error {
	if q.Status != StatusApproved || !q.IsExpired(now) {
		return invalidTransition(q.Status, StatusExpired)
	}
	q.Status = StatusExpired
	return nil
}

// Cancel ends the quote. Converted and cancelled quotes are final.
func (q *Quote) Cancel(now time.Time) error {
	if q.Status == StatusConverted || q.Status == StatusCancelled {
		return invalidTransition(q.Status, StatusCancelled)
	}
	q.Status = StatusCancelled
	q.CancelledAt = &now
	return nil
}
