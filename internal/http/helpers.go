package http

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"lihkab/internal/core"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"tl":        core.FormatTL,
		"amount":    core.GroupThousands,
		"feeInput":  func(d decimal.Decimal) string { return d.String() },
		"monthName": monthName,
		"monthKey":  monthKeyLabel,
		"isoDate":   func(d core.Date) string { return d.String() },
		"date":      func(d core.Date) string { return d.Display() },
		"inc":       func(i int) int { return i + 1 },
	}
}

// monthName returns the Turkish name of month 1-12, or "".
func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return core.MonthNames[m-1]
}

// monthKeyLabel renders "2024-03" as "Mart 2024".
func monthKeyLabel(key string) string {
	y, m, ok := strings.Cut(key, "-")
	if !ok {
		return key
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return key
	}
	if name := monthName(n); name != "" {
		return name + " " + y
	}
	return key
}

// parseMonth accepts a month number or a Turkish month name. Anything else
// gives 0, meaning no month filter.
func parseMonth(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	for i, name := range core.MonthNames {
		if strings.EqualFold(name, s) || strings.EqualFold(foldTurkish(name), foldTurkish(s)) {
			return i + 1
		}
	}
	return 0
}

var turkishLower = strings.NewReplacer(
	"İ", "i", "I", "ı", "Ş", "ş", "Ğ", "ğ", "Ü", "ü", "Ö", "ö", "Ç", "ç",
)

// foldTurkish lower-cases with Turkish dotted and dotless i rules.
func foldTurkish(s string) string {
	return strings.ToLower(turkishLower.Replace(s))
}

// parseYear returns a plausible year, or 0.
func parseYear(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1900 || n > 9999 {
		return 0
	}
	return n
}

// sanitizeInput removes control characters except tab and newlines and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
