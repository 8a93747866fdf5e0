// Package quotes owns the quote aggregate: pricing, workflow and revisions.
package quotes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/pricing"
)

// Status enumerates quote lifecycle states.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusExpired     Status = "expired"
	StatusConverted   Status = "converted"
	StatusCancelled   Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved,
		StatusRejected, StatusExpired, StatusConverted, StatusCancelled:
		return true
	}
	return false
}

// ItemType classifies quote lines.
type ItemType string

const (
	ItemService   ItemType = "service"
	ItemAddon     ItemType = "addon"
	ItemExtra     ItemType = "extra"
	ItemMaterial  ItemType = "material"
	ItemLabor     ItemType = "labor"
	ItemEquipment ItemType = "equipment"
	ItemOther     ItemType = "other"
)

// Quote is a priced offer for a cleaning job.
type Quote struct {
	ID                    uuid.UUID            `json:"id"`
	QuoteNumber           string               `json:"quote_number"`
	ClientID              uuid.UUID            `json:"client_id"`
	ServiceID             uuid.UUID            `json:"service_id"`
	CleaningType          pricing.CleaningType `json:"cleaning_type"`
	PropertyAddress       string               `json:"property_address"`
	Postcode              string               `json:"postcode"`
	Rooms                 int                  `json:"number_of_rooms"`
	SquareMeters          decimal.NullDecimal  `json:"square_meters"`
	UrgencyLevel          int                  `json:"urgency_level"`
	IsNDISClient          bool                 `json:"is_ndis_client"`
	NDISParticipantNumber string               `json:"ndis_participant_number,omitempty"`
	PlanManagerName       string               `json:"plan_manager_name,omitempty"`
	PlanManagerEmail      string               `json:"plan_manager_email,omitempty"`
	IsRepeatCustomer      bool                 `json:"is_repeat_customer"`
	PromotionalDiscount   decimal.Decimal      `json:"promotional_discount"`

	BasePrice        decimal.Decimal `json:"base_price"`
	ExtrasCost       decimal.Decimal `json:"extras_cost"`
	TravelCost       decimal.Decimal `json:"travel_cost"`
	UrgencySurcharge decimal.Decimal `json:"urgency_surcharge"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	FinalPrice       decimal.Decimal `json:"final_price"`

	DepositRequired   bool            `json:"deposit_required"`
	DepositPercentage decimal.Decimal `json:"deposit_percentage"`
	DepositAmount     decimal.Decimal `json:"deposit_amount"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`

	Status          Status     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	AssignedTo      *uuid.UUID `json:"assigned_to,omitempty"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ConvertedAt     *time.Time `json:"converted_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Items []Item `json:"items"`
}

// TaxableAmount is the subtotal after discount.
func (q *Quote) TaxableAmount() decimal.Decimal {
	return q.Subtotal.Sub(q.DiscountAmount)
}

// Item is a line on a quote.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	QuoteID     uuid.UUID       `json:"quote_id"`
	ItemType    ItemType        `json:"item_type"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	IsTaxable   bool            `json:"is_taxable"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Revision is an immutable record of a significant price change.
type Revision struct {
	ID             uuid.UUID       `json:"id"`
	QuoteID        uuid.UUID       `json:"quote_id"`
	RevisionNumber int             `json:"revision_number"`
	PreviousPrice  decimal.Decimal `json:"previous_price"`
	NewPrice       decimal.Decimal `json:"new_price"`
	Reason         string          `json:"reason"`
	Summary        string          `json:"summary"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ListFilter narrows quote listings.
type ListFilter struct {
	ClientID *uuid.UUID
	Status   *Status
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}
