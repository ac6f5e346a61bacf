package http

import (
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

// formatCurrency renders an amount with thousands separators and two
// decimals, e.g. "₹1,250.50" or "-₹3.00".
func formatCurrency(symbol string, d decimal.Decimal) string {
	f := d.Round(core.AmountScale).InexactFloat64()
	if f < 0 {
		return "-" + symbol + humanize.FormatFloat("#,###.##", -f)
	}
	return symbol + humanize.FormatFloat("#,###.##", f)
}

// formatPercent renders a 0..1 ratio as a whole percentage.
func formatPercent(ratio float64) string {
	return strconv.Itoa(int(math.Round(ratio*100))) + "%"
}

// barWidth maps a 0..1 share to a CSS width, keeping tiny non-zero values
// visible.
func barWidth(share float64) int {
	if share <= 0 {
		return 0
	}
	w := int(math.Round(share * 100))
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

// sanitizeInput removes control characters except tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return formatCurrency(s.currency, d)
		},
		"amountInput": func(d decimal.Decimal) string {
			return d.StringFixed(core.AmountScale)
		},
		"percent":    formatPercent,
		"barWidth":   barWidth,
		"categories": core.CategoryNames,
		"currency":   func() string { return s.currency },
	}
}
