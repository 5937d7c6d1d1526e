package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateLayout is the format of every EffectiveDate produced by ingestion.
const DateLayout = "01/02/2006"

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01-02-2006",
	"1-2-2006",
	"01-02-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"02-Jan-06",
}

// normalizeDate converts a spreadsheet date (serial number or text) to
// MM/DD/YYYY. Values that are not dates become empty, as unreadable dates
// are dropped rather than entered.
func normalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial > 0 && serial < 2958466 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return t.Format(DateLayout)
			}
		}
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout)
		}
	}
	return ""
}

// normalizeAmount returns the amount as a plain decimal string. Currency
// symbols, grouping separators and accounting parentheses are accepted.
// Values that are not numbers become empty.
func normalizeAmount(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	negative := strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")")
	v = strings.Trim(v, "()")
	v = strings.NewReplacer(",", "", "$", "", " ", "").Replace(v)

	d, err := decimal.NewFromString(v)
	if err != nil {
		return ""
	}
	if negative {
		d = d.Neg()
	}
	return d.String()
}
