package shared

import (
	"fmt"
	"strconv"
	"strings"
)

// Document number prefixes.
const (
	QuoteNumberPrefix   = "QT"
	InvoiceNumberPrefix = "INV"
)

// NumberPrefix returns the year scoped prefix, e.g. "QT-2026-".
func NumberPrefix(prefix string, year int) string {
	return fmt.Sprintf("%s-%04d-", prefix, year)
}

// FormatNumber builds a document number such as QT-2026-0042.
func FormatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s%04d", NumberPrefix(prefix, year), seq)
}

// ParseSequence extracts the trailing sequence from a number issued for the
// given prefix and year.
func ParseSequence(number, prefix string, year int) (int, bool) {
	scoped := NumberPrefix(prefix, year)
	if !strings.HasPrefix(number, scoped) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, scoped))
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}

// NextNumber returns max(existing sequence)+1 formatted for the year.
// Numbers from other years or with other prefixes are ignored.
func NextNumber(prefix string, year int, existing []string) string {
	max := 0
	for _, number := range existing {
		if seq, ok := ParseSequence(number, prefix, year); ok && seq > max {
			max = seq
		}
	}
	return FormatNumber(prefix, year, max+1)
}
