package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteQuoteCSV serialises the quote lines followed by the totals block.
func WriteQuoteCSV(w io.Writer, doc QuoteDocument) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Quote", "Description", "Type", "Quantity", "Unit Price", "Total", "Taxable"}); err != nil {
		return err
	}
	for _, line := range doc.Lines {
		if err := writer.Write([]string{
			doc.Number,
			line.Description,
			line.Type,
			line.Quantity,
			line.UnitPrice,
			line.Total,
			strconv.FormatBool(line.Taxable),
		}); err != nil {
			return err
		}
	}
	for _, total := range doc.Totals {
		if err := writer.Write([]string{doc.Number, total.Label, "", "", "", total.Amount, ""}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
