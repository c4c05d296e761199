package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatTL renders an amount rounded to whole lira with comma thousands
// separators, e.g. 1234567.8 -> "1,234,568 TL".
func FormatTL(d decimal.Decimal) string {
	return GroupThousands(d) + " TL"
}

// GroupThousands rounds d to an integer and inserts comma separators.
func GroupThousands(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
