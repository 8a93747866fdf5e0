package quotes

import (
	"encoding/json"

	"github.com/sparkleops/sparkle-ops/internal/money"
)

// The aliases drop the MarshalJSON methods; the shallower money.Amount fields
// shadow the decimal ones so every price is written with two digits.

type quoteAlias Quote

// MarshalJSON renders monetary fields with two fractional digits.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		quoteAlias
		PromotionalDiscount money.Amount `json:"promotional_discount"`
		BasePrice           money.Amount `json:"base_price"`
		ExtrasCost          money.Amount `json:"extras_cost"`
		TravelCost          money.Amount `json:"travel_cost"`
		UrgencySurcharge    money.Amount `json:"urgency_surcharge"`
		Subtotal            money.Amount `json:"subtotal"`
		DiscountAmount      money.Amount `json:"discount_amount"`
		GSTAmount           money.Amount `json:"gst_amount"`
		FinalPrice          money.Amount `json:"final_price"`
		DepositAmount       money.Amount `json:"deposit_amount"`
		RemainingBalance    money.Amount `json:"remaining_balance"`
	}{
		quoteAlias:          quoteAlias(q),
		PromotionalDiscount: money.Amount(q.PromotionalDiscount),
		BasePrice:           money.Amount(q.BasePrice),
		ExtrasCost:          money.Amount(q.ExtrasCost),
		TravelCost:          money.Amount(q.TravelCost),
		UrgencySurcharge:    money.Amount(q.UrgencySurcharge),
		Subtotal:            money.Amount(q.Subtotal),
		DiscountAmount:      money.Amount(q.DiscountAmount),
		GSTAmount:           money.Amount(q.GSTAmount),
		FinalPrice:          money.Amount(q.FinalPrice),
		DepositAmount:       money.Amount(q.DepositAmount),
		RemainingBalance:    money.Amount(q.RemainingBalance),
	})
}

type itemAlias Item

// MarshalJSON renders monetary fields with two fractional digits.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		itemAlias
		UnitPrice  money.Amount `json:"unit_price"`
		TotalPrice money.Amount `json:"total_price"`
	}{itemAlias(i), money.Amount(i.UnitPrice), money.Amount(i.TotalPrice)})
}

type revisionAlias Revision

// MarshalJSON renders monetary fields with two fractional digits.
func (r Revision) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		revisionAlias
		PreviousPrice money.Amount `json:"previous_price"`
		NewPrice      money.Amount `json:"new_price"`
	}{revisionAlias(r), money.Amount(r.PreviousPrice), money.Amount(r.NewPrice)})
}
