package pricing

import "github.com/shopspring/decimal"

// CleaningType enumerates the cleaning services that can be quoted.
type CleaningType string

const (
	CleaningGeneral         CleaningType = "general"
	CleaningDeep            CleaningType = "deep"
	CleaningEndOfLease      CleaningType = "end_of_lease"
	CleaningNDIS            CleaningType = "ndis"
	CleaningCommercial      CleaningType = "commercial"
	CleaningCarpet          CleaningType = "carpet"
	CleaningWindow          CleaningType = "window"
	CleaningPressureWashing CleaningType = "pressure_washing"
)

// CleaningTypes lists every supported cleaning type.
var CleaningTypes = []CleaningType{
	CleaningGeneral,
	CleaningDeep,
	CleaningEndOfLease,
	CleaningNDIS,
	CleaningCommercial,
	CleaningCarpet,
	CleaningWindow,
	CleaningPressureWashing,
}

// Valid reports whether the cleaning type is known.
func (c CleaningType) Valid() bool {
	for _, known := range CleaningTypes {
		if c == known {
			return true
		}
	}
	return false
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	one = decimal.NewFromInt(1)

	roomTypeFactor = map[CleaningType]decimal.Decimal{
		CleaningGeneral:         dec("1.0"),
		CleaningDeep:            dec("1.5"),
		CleaningEndOfLease:      dec("1.8"),
		CleaningNDIS:            dec("1.2"),
		CleaningCommercial:      dec("0.9"),
		CleaningCarpet:          dec("0.8"),
		CleaningWindow:          dec("0.6"),
		CleaningPressureWashing: dec("0.7"),
	}

	// Applied on top of the room multiplier. Every type currently prices at 1.0.
	cleaningTypeFactor = map[CleaningType]decimal.Decimal{
		CleaningGeneral:         dec("1.0"),
		CleaningDeep:            dec("1.0"),
		CleaningEndOfLease:      dec("1.0"),
		CleaningNDIS:            dec("1.0"),
		CleaningCommercial:      dec("1.0"),
		CleaningCarpet:          dec("1.0"),
		CleaningWindow:          dec("1.0"),
		CleaningPressureWashing: dec("1.0"),
	}

	sizeTypeFactor = map[CleaningType]decimal.Decimal{
		CleaningGeneral:         dec("1.0"),
		CleaningDeep:            dec("1.3"),
		CleaningEndOfLease:      dec("1.5"),
		CleaningNDIS:            dec("1.1"),
		CleaningCommercial:      dec("1.2"),
		CleaningCarpet:          dec("1.0"),
		CleaningWindow:          dec("0.8"),
		CleaningPressureWashing: dec("1.4"),
	}

	urgencyRates = map[int]decimal.Decimal{
		1: dec("0.00"),
		2: dec("0.00"),
		3: dec("0.15"),
		4: dec("0.30"),
		5: dec("0.50"),
	}

	ndisDiscountRate   = dec("0.05")
	repeatDiscountRate = dec("0.03")
	maxDiscountRate    = dec("0.20")

	invalidPostcodeTravel = dec("25.00")
	defaultTravel         = dec("30.00")
)

type roomBracket struct {
	maxRooms int
	factor   decimal.Decimal
}

// Rooms above the last bracket use overflowRoomFactor.
var roomBrackets = []roomBracket{
	{maxRooms: 2, factor: dec("1.0")},
	{maxRooms: 4, factor: dec("1.3")},
	{maxRooms: 6, factor: dec("1.6")},
}

var overflowRoomFactor = dec("2.0")

type sizeBracket struct {
	maxSquareMeters decimal.Decimal
	charge          decimal.Decimal
}

var sizeBrackets = []sizeBracket{
	{maxSquareMeters: dec("50"), charge: dec("0")},
	{maxSquareMeters: dec("100"), charge: dec("20")},
	{maxSquareMeters: dec("200"), charge: dec("50")},
	{maxSquareMeters: dec("300"), charge: dec("80")},
}

var overflowSizeCharge = dec("120")

type travelZone struct {
	name     string
	from, to int
	cost     decimal.Decimal
}

var travelZones = []travelZone{
	{name: "sydney", from: 2000, to: 2299, cost: dec("15.00")},
	{name: "melbourne", from: 3000, to: 3199, cost: dec("18.00")},
	{name: "brisbane", from: 4000, to: 4199, cost: dec("20.00")},
	{name: "perth", from: 6000, to: 6199, cost: dec("25.00")},
	{name: "adelaide", from: 5000, to: 5199, cost: dec("22.00")},
}
