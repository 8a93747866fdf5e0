package quotes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/money"
	"github.com/sparkleops/sparkle-ops/internal/pricing"
)

// AddonInput is a free-form priced add-on supplied with a request.
type AddonInput struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// ItemInput adds a line to a quote.
type ItemInput struct {
	ItemType    ItemType        `json:"item_type" validate:"required,oneof=service addon extra material labor equipment other"`
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
	IsTaxable   *bool           `json:"is_taxable,omitempty"`
}

// CreateQuoteRequest captures the structural inputs of a new quote.
type CreateQuoteRequest struct {
	ClientID              uuid.UUID            `json:"client_id"`
	ServiceID             uuid.UUID            `json:"service_id" validate:"required"`
	CleaningType          pricing.CleaningType `json:"cleaning_type" validate:"required,oneof=general deep end_of_lease ndis commercial carpet window pressure_washing"`
	PropertyAddress       string               `json:"property_address" validate:"required,max=500"`
	Postcode              string               `json:"postcode" validate:"required,postcode"`
	Rooms                 int                  `json:"number_of_rooms" validate:"min=1,max=50"`
	SquareMeters          decimal.NullDecimal  `json:"square_meters" validate:"omitempty,gt=0"`
	UrgencyLevel          int                  `json:"urgency_level" validate:"min=1,max=5"`
	IsNDISClient          bool                 `json:"is_ndis_client"`
	NDISParticipantNumber string               `json:"ndis_participant_number" validate:"required_if=IsNDISClient true,max=20"`
	PlanManagerName       string               `json:"plan_manager_name" validate:"max=200"`
	PlanManagerEmail      string               `json:"plan_manager_email" validate:"omitempty,email"`
	IsRepeatCustomer      bool                 `json:"is_repeat_customer"`
	PromotionalDiscount   decimal.Decimal      `json:"promotional_discount" validate:"gte=0"`
	DepositRequired       bool                 `json:"deposit_required"`
	DepositPercentage     decimal.NullDecimal  `json:"deposit_percentage" validate:"omitempty,gt=0,lte=100"`
	AddonIDs              []uuid.UUID          `json:"addon_ids"`
	Addons                []AddonInput         `json:"addons" validate:"dive"`
	Items                 []ItemInput          `json:"items" validate:"dive"`
	Notes                 string               `json:"notes" validate:"max=2000"`
}

// UpdateQuoteRequest changes structural inputs of an editable quote. Nil
// fields are left untouched.
type UpdateQuoteRequest struct {
	ServiceID             *uuid.UUID            `json:"service_id,omitempty"`
	CleaningType          *pricing.CleaningType `json:"cleaning_type,omitempty" validate:"omitempty,oneof=general deep end_of_lease ndis commercial carpet window pressure_washing"`
	PropertyAddress       *string               `json:"property_address,omitempty" validate:"omitempty,max=500"`
	Postcode              *string               `json:"postcode,omitempty" validate:"omitempty,postcode"`
	Rooms                 *int                  `json:"number_of_rooms,omitempty" validate:"omitempty,min=1,max=50"`
	SquareMeters          *decimal.NullDecimal  `json:"square_meters,omitempty"`
	UrgencyLevel          *int                  `json:"urgency_level,omitempty" validate:"omitempty,min=1,max=5"`
	IsNDISClient          *bool                 `json:"is_ndis_client,omitempty"`
	NDISParticipantNumber *string               `json:"ndis_participant_number,omitempty" validate:"omitempty,max=20"`
	IsRepeatCustomer      *bool                 `json:"is_repeat_customer,omitempty"`
	PromotionalDiscount   *decimal.Decimal      `json:"promotional_discount,omitempty" validate:"omitempty,gte=0"`
	DepositRequired       *bool                 `json:"deposit_required,omitempty"`
	Notes                 *string               `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateItemRequest changes a quote line.
type UpdateItemRequest struct {
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	IsTaxable   *bool            `json:"is_taxable,omitempty"`
}

// ApproveRequest optionally overrides the default expiry.
type ApproveRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ReasonRequest carries a mandatory free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"notblank,max=1000"`
}

// CalculateRequest prices a prospective quote without storing it.
type CalculateRequest struct {
	ServiceID           uuid.UUID            `json:"service_id" validate:"required"`
	CleaningType        pricing.CleaningType `json:"cleaning_type" validate:"required,oneof=general deep end_of_lease ndis commercial carpet window pressure_washing"`
	Postcode            string               `json:"postcode" validate:"required,postcode"`
	Rooms               int                  `json:"number_of_rooms" validate:"min=1,max=50"`
	SquareMeters        decimal.NullDecimal  `json:"square_meters" validate:"omitempty,gt=0"`
	UrgencyLevel        int                  `json:"urgency_level" validate:"min=1,max=5"`
	IsNDISClient        bool                 `json:"is_ndis_client"`
	IsRepeatCustomer    bool                 `json:"is_repeat_customer"`
	PromotionalDiscount decimal.Decimal      `json:"promotional_discount" validate:"gte=0"`
	DepositRequired     bool                 `json:"deposit_required"`
	AddonIDs            []uuid.UUID          `json:"addon_ids"`
	Addons              []AddonInput         `json:"addons" validate:"dive"`
}

// Estimate is the result of a stateless price calculation.
type Estimate struct {
	pricing.Breakdown
	DepositAmount    decimal.Decimal `json:"deposit_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// MarshalJSON flattens the breakdown next to the deposit split. The embedded
// Breakdown marshaller would otherwise swallow the deposit fields.
func (e Estimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		pricing.BreakdownView
		DepositAmount    money.Amount `json:"deposit_amount"`
		RemainingBalance money.Amount `json:"remaining_balance"`
	}{e.Breakdown.View(), money.Amount(e.DepositAmount), money.Amount(e.RemainingBalance)})
}
