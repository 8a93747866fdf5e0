package quotes

import (
	"strconv"
	"time"

	"github.com/sparkleops/sparkle-ops/internal/money"
	"github.com/sparkleops/sparkle-ops/report"
)

const documentDate = "02 Jan 2006"

// Document builds the printable view of q.
func Document(q *Quote) report.QuoteDocument {
	doc := report.QuoteDocument{
		Number:                q.QuoteNumber,
		Status:                string(q.Status),
		IssuedAt:              q.CreatedAt.In(sydney).Format(documentDate),
		PropertyAddress:       q.PropertyAddress,
		Postcode:              q.Postcode,
		CleaningType:          string(q.CleaningType),
		Rooms:                 q.Rooms,
		NDISParticipantNumber: q.NDISParticipantNumber,
		Notes:                 q.Notes,
	}
	if q.ExpiresAt != nil {
		doc.ExpiresAt = q.ExpiresAt.In(sydney).Format(documentDate)
	}
	if q.SquareMeters.Valid {
		doc.SquareMeters = q.SquareMeters.Decimal.String()
	}
	for _, it := range q.Items {
		doc.Lines = append(doc.Lines, report.DocumentLine{
			Description: it.Description,
			Type:        string(it.ItemType),
			Quantity:    it.Quantity.String(),
			UnitPrice:   money.Format(it.UnitPrice),
			Total:       money.Format(it.TotalPrice),
			Taxable:     it.IsTaxable,
		})
	}
	doc.Totals = []report.TotalLine{
		{Label: "Base price", Amount: money.Format(q.BasePrice)},
		{Label: "Extras", Amount: money.Format(q.ExtrasCost)},
		{Label: "Travel", Amount: money.Format(q.TravelCost)},
		{Label: "Urgency surcharge", Amount: money.Format(q.UrgencySurcharge)},
		{Label: "Subtotal", Amount: money.Format(q.Subtotal)},
		{Label: "Discount", Amount: money.Format(q.DiscountAmount.Neg())},
		{Label: "GST (10%)", Amount: money.Format(q.GSTAmount)},
		{Label: "Total (AUD)", Amount: money.Format(q.FinalPrice), Grand: true},
	}
	if q.DepositRequired {
		doc.Totals = append(doc.Totals,
			report.TotalLine{Label: "Deposit (" + q.DepositPercentage.StringFixed(0) + "%)", Amount: money.Format(q.DepositAmount)},
			report.TotalLine{Label: "Balance due", Amount: money.Format(q.RemainingBalance)},
		)
	}
	return doc
}

var sydney = loadZone("Australia/Sydney")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Filename returns the download name for a quote document.
func Filename(q *Quote, ext string) string {
	if q.QuoteNumber == "" {
		return "quote-" + strconv.Itoa(int(q.CreatedAt.Unix())) + "." + ext
	}
	return q.QuoteNumber + "." + ext
}
