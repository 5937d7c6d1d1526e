package fieldspec

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/entrypilot/internal/types"
)

// FormatDisplayAmount renders an amount with two decimal places and
// grouping separators ("1234.5" becomes "1,234.50"). Text that is not a
// number is returned unchanged.
func FormatDisplayAmount(amount string) string {
	trimmed := strings.TrimSpace(NormalizeAmount(amount))
	if trimmed == "" {
		return amount
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return amount
	}

	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// DisplayCopy returns a copy of record whose Amount is formatted for
// display. The input record is not modified.
func DisplayCopy(record types.Record) types.Record {
	record.Amount = types.Amount(FormatDisplayAmount(record.Amount.String()))
	return record
}
