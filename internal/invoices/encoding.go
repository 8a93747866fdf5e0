package invoices

import (
	"encoding/json"

	"github.com/sparkleops/sparkle-ops/internal/money"
)

type invoiceAlias Invoice

// MarshalJSON renders monetary fields with two fractional digits.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		invoiceAlias
		Subtotal       money.Amount `json:"subtotal"`
		DiscountAmount money.Amount `json:"discount_amount"`
		TaxableAmount  money.Amount `json:"taxable_amount"`
		GSTAmount      money.Amount `json:"gst_amount"`
		Total          money.Amount `json:"total"`
		DepositAmount  money.Amount `json:"deposit_amount"`
		BalanceDue     money.Amount `json:"balance_due"`
	}{
		invoiceAlias:   invoiceAlias(inv),
		Subtotal:       money.Amount(inv.Subtotal),
		DiscountAmount: money.Amount(inv.DiscountAmount),
		TaxableAmount:  money.Amount(inv.TaxableAmount),
		GSTAmount:      money.Amount(inv.GSTAmount),
		Total:          money.Amount(inv.Total),
		DepositAmount:  money.Amount(inv.DepositAmount),
		BalanceDue:     money.Amount(inv.BalanceDue),
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
