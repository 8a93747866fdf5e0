// Package pricing computes quote price breakdowns. Everything here is pure:
// no persistence, no clock, no logging.
package pricing

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/money"
)

// ErrMissingService is returned when a quote has no service to price against.
var ErrMissingService = errors.New("pricing: service required")

// ServiceRate is the part of a catalog service the calculator needs.
type ServiceRate struct {
	BasePrice  decimal.Decimal
	TravelRate decimal.NullDecimal
}

// Addon is a priced extra attached to a quote.
type Addon struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Input carries the structural fields of a quote.
type Input struct {
	Service             *ServiceRate
	CleaningType        CleaningType
	Rooms               int
	SquareMeters        decimal.NullDecimal
	UrgencyLevel        int
	Postcode            string
	Addons              []Addon
	IsNDISClient        bool
	IsRepeatCustomer    bool
	PromotionalDiscount decimal.Decimal
}

// Breakdown is the full price composition of a quote.
type Breakdown struct {
	BasePrice        decimal.Decimal `json:"base_price"`
	ExtrasCost       decimal.Decimal `json:"extras_cost"`
	TravelCost       decimal.Decimal `json:"travel_cost"`
	UrgencySurcharge decimal.Decimal `json:"urgency_surcharge"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TaxableAmount    decimal.Decimal `json:"taxable_amount"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}

// BreakdownView is the wire form of a Breakdown.
type BreakdownView struct {
	BasePrice        money.Amount `json:"base_price"`
	ExtrasCost       money.Amount `json:"extras_cost"`
	TravelCost       money.Amount `json:"travel_cost"`
	UrgencySurcharge money.Amount `json:"urgency_surcharge"`
	Subtotal         money.Amount `json:"subtotal"`
	DiscountAmount   money.Amount `json:"discount_amount"`
	TaxableAmount    money.Amount `json:"taxable_amount"`
	GSTAmount        money.Amount `json:"gst_amount"`
	TotalPrice       money.Amount `json:"total_price"`
}

// View converts the breakdown to its wire form.
func (b Breakdown) View() BreakdownView {
	return BreakdownView{
		BasePrice:        money.Amount(b.BasePrice),
		ExtrasCost:       money.Amount(b.ExtrasCost),
		TravelCost:       money.Amount(b.TravelCost),
		UrgencySurcharge: money.Amount(b.UrgencySurcharge),
		Subtotal:         money.Amount(b.Subtotal),
		DiscountAmount:   money.Amount(b.DiscountAmount),
		TaxableAmount:    money.Amount(b.TaxableAmount),
		GSTAmount:        money.Amount(b.GSTAmount),
		TotalPrice:       money.Amount(b.TotalPrice),
	}
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.View())
}

// Calculate runs the pricing pipeline. The order of the steps and the
// rounding after each one are part of the contract.
func Calculate(in Input) (Breakdown, error) {
	if in.Service == nil {
		return Breakdown{}, ErrMissingService
	}

	base := BasePrice(in.Service.BasePrice, in.CleaningType, in.Rooms, in.SquareMeters)
	extras := ExtrasCost(in.Addons)
	travel := TravelCost(in.Postcode, in.Service.TravelRate)
	urgency := UrgencySurcharge(base, in.UrgencyLevel)
	subtotal := money.RoundHalfUp(money.Sum(base, extras, travel, urgency))
	discount := Discount(subtotal, in.IsNDISClient, in.IsRepeatCustomer, in.PromotionalDiscount)
	taxable := subtotal.Sub(discount)
	gst := money.GST(taxable)

	return Breakdown{
		BasePrice:        base,
		ExtrasCost:       extras,
		TravelCost:       travel,
		UrgencySurcharge: urgency,
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		TaxableAmount:    taxable,
		GSTAmount:        gst,
		TotalPrice:       taxable.Add(gst),
	}, nil
}

// RoomMultiplier combines the per-type factor with the room-count bracket.
func RoomMultiplier(cleaningType CleaningType, rooms int) decimal.Decimal {
	factor, ok := roomTypeFactor[cleaningType]
	if !ok {
		factor = one
	}
	bracket := overflowRoomFactor
	for _, b := range roomBrackets {
		if rooms <= b.maxRooms {
			bracket = b.factor
			break
		}
	}
	return factor.Mul(bracket)
}

// CleaningTypeMultiplier returns the type-level price factor.
func CleaningTypeMultiplier(cleaningType CleaningType) decimal.Decimal {
	if factor, ok := cleaningTypeFactor[cleaningType]; ok {
		return factor
	}
	return one
}

// SizeAdjustment returns the flat surcharge for the floor area.
func SizeAdjustment(cleaningType CleaningType, squareMeters decimal.Decimal) decimal.Decimal {
	charge := overflowSizeCharge
	for _, b := range sizeBrackets {
		if squareMeters.LessThanOrEqual(b.maxSquareMeters) {
			charge = b.charge
			break
		}
	}
	factor, ok := sizeTypeFactor[cleaningType]
	if !ok {
		factor = one
	}
	return money.Mul(charge, factor)
}

// BasePrice prices the service for the property before extras.
func BasePrice(servicePrice decimal.Decimal, cleaningType CleaningType, rooms int, squareMeters decimal.NullDecimal) decimal.Decimal {
	base := money.RoundHalfUp(servicePrice.
		Mul(RoomMultiplier(cleaningType, rooms)).
		Mul(CleaningTypeMultiplier(cleaningType)))
	if squareMeters.Valid {
		base = base.Add(SizeAdjustment(cleaningType, squareMeters.Decimal))
	}
	return base
}

// ExtrasCost sums add-on prices.
func ExtrasCost(addons []Addon) decimal.Decimal {
	total := decimal.Zero
	for _, a := range addons {
		total = total.Add(a.Price)
	}
	return money.RoundHalfUp(total)
}

// TravelCost looks the postcode up in the metro zones. A postcode that is not
// a number gets the flat fallback and ignores the service travel rate.
func TravelCost(postcode string, travelRate decimal.NullDecimal) decimal.Decimal {
	code, err := strconv.Atoi(strings.TrimSpace(postcode))
	if err != nil {
		return invalidPostcodeTravel
	}
	cost := defaultTravel
	for _, zone := range travelZones {
		if code >= zone.from && code <= zone.to {
			cost = zone.cost
			break
		}
	}
	if travelRate.Valid {
		cost = money.Mul(cost, travelRate.Decimal)
	}
	return cost
}

// TravelZone names the metro zone for a postcode, or "regional".
func TravelZone(postcode string) string {
	code, err := strconv.Atoi(strings.TrimSpace(postcode))
	if err != nil {
		return "invalid"
	}
	for _, zone := range travelZones {
		if code >= zone.from && code <= zone.to {
			return zone.name
		}
	}
	return "regional"
}

// UrgencySurcharge applies the urgency rate to the base price. Levels outside
// 1-5 carry no surcharge.
func UrgencySurcharge(base decimal.Decimal, level int) decimal.Decimal {
	rate, ok := urgencyRates[level]
	if !ok {
		return decimal.Zero
	}
	return money.Percent(base, rate)
}

// Discount stacks the NDIS, repeat-customer and promotional discounts and caps
// the result at 20% of the subtotal.
func Discount(subtotal decimal.Decimal, ndis, repeat bool, promotional decimal.Decimal) decimal.Decimal {
	discount := decimal.Zero
	if ndis {
		discount = discount.Add(money.Percent(subtotal, ndisDiscountRate))
	}
	if repeat {
		discount = discount.Add(money.Percent(subtotal, repeatDiscountRate))
	}
	if promotional.IsPositive() {
		discount = discount.Add(promotional)
	}
	limit := money.Percent(subtotal, maxDiscountRate)
	if discount.GreaterThan(limit) {
		discount = limit
	}
	return money.RoundHalfUp(discount)
}

// Deposit splits a final price into the deposit due and the remaining balance.
func Deposit(total, percentage decimal.Decimal) (deposit, remaining decimal.Decimal) {
	if !percentage.IsPositive() {
		return decimal.Zero, total
	}
	deposit = money.Percent(total, percentage.Div(money.Hundred))
	return deposit, total.Sub(deposit)
}

// MaxDiscount reports the discount cap for a subtotal.
func MaxDiscount(subtotal decimal.Decimal) decimal.Decimal {
	return money.Percent(subtotal, maxDiscountRate)
}
