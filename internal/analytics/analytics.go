// Package analytics computes the dashboard figures from a user's rows.
// Every function is pure and leaves its input untouched.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

// TopCount is how many of the largest rows the dashboard shows.
const TopCount = 5

type Summary struct {
	Total   decimal.Decimal
	Average decimal.Decimal
	Count   int
}

type CategoryTotal struct {
	Category core.Category
	Total    decimal.Decimal
	// Share is Total relative to the largest category, in [0,1].
	Share float64
}

type MonthTotal struct {
	Month string
	Total decimal.Decimal
	Share float64
}

type BudgetProgress struct {
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Ratio     float64
	OverLimit bool
}

// Dashboard is everything the analytics view renders.
type Dashboard struct {
	Selection   string
	Months      []string
	Summary     Summary
	Top         []core.LogEntry
	Categories  []CategoryTotal
	Trend       []MonthTotal
	Budget      BudgetProgress
	Records     []core.LogEntry
	EditableIDs []int64
}

func Summarize(entries []core.LogEntry) Summary {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	s := Summary{Total: total, Average: decimal.Zero, Count: len(entries)}
	if s.Count > 0 {
		s.Average = total.Div(decimal.NewFromInt(int64(s.Count))).Round(core.AmountScale)
	}
	return s
}

// TopN returns the n largest amounts. Equal amounts keep their input order.
func TopN(entries []core.LogEntry, n int) []core.LogEntry {
	sorted := make([]core.LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.GreaterThan(sorted[j].Amount)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ByCategory sums amounts per category, ordered by category name.
func ByCategory(entries []core.LogEntry) []CategoryTotal {
	sums := make(map[core.Category]decimal.Decimal)
	for _, e := range entries {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	out := make([]CategoryTotal, 0, len(sums))
	for c, total := range sums {
		out = append(out, CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Category.String() < out[j].Category.String()
	})

	peak := decimal.Zero
	for _, ct := range out {
		peak = decimal.Max(peak, ct.Total)
	}
	for i := range out {
		out[i].Share = share(out[i].Total, peak)
	}
	return out
}

// Trend sums amounts per month, oldest month first.
func Trend(entries []core.LogEntry) []MonthTotal {
	sums := make(map[string]decimal.Decimal)
	var labels []string
	for _, e := range entries {
		if e.LogDate.IsZero() {
			continue
		}
		l := MonthLabel(e.LogDate)
		if _, ok := sums[l]; !ok {
			labels = append(labels, l)
		}
		sums[l] = sums[l].Add(e.Amount)
	}

	peak := decimal.Zero
	for _, v := range sums {
		peak = decimal.Max(peak, v)
	}
	out := make([]MonthTotal, 0, len(labels))
	for _, l := range SortMonths(labels, true) {
		out = append(out, MonthTotal{Month: l, Total: sums[l], Share: share(sums[l], peak)})
	}
	return out
}

// Budget reports spend against limit. Ratio is clamped to [0,1]; Spent
// keeps the raw figure.
func Budget(limit, spent decimal.Decimal) BudgetProgress {
	p := BudgetProgress{Limit: limit, Spent: spent}
	switch {
	case limit.IsPositive():
		p.Ratio = clamp(spent.Div(limit).InexactFloat64())
	case spent.IsPositive():
		p.Ratio = 1
	}
	p.OverLimit = spent.GreaterThan(limit)
	return p
}

// BudgetSpend totals the selected month, or the calendar month of now when
// nothing specific is selected.
func BudgetSpend(entries []core.LogEntry, selection string, now time.Time) decimal.Decimal {
	month := selection
	if month == "" || month == AllTime {
		month = MonthLabel(core.DateOf(now))
	}
	return Summarize(Filter(entries, month)).Total
}

// Build assembles the dashboard for a selection. Category figures follow
// the selection; the trend always covers every row.
func Build(entries []core.LogEntry, selection string, limit decimal.Decimal, now time.Time) Dashboard {
	if selection == "" {
		selection = AllTime
	}
	filtered := Filter(entries, selection)
	records := Newest(filtered)

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	return Dashboard{
		Selection:   selection,
		Months:      MonthOptions(entries),
		Summary:     Summarize(filtered),
		Top:         TopN(filtered, TopCount),
		Categories:  ByCategory(filtered),
		Trend:       Trend(entries),
		Budget:      Budget(limit, BudgetSpend(entries, selection, now)),
		Records:     records,
		EditableIDs: ids,
	}
}

// Newest returns a copy of entries ordered by date descending, ties by id
// descending.
func Newest(entries []core.LogEntry) []core.LogEntry {
	records := make([]core.LogEntry, len(entries))
	copy(records, entries)
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.LogDate.Equal(b.LogDate.Time) {
			return a.LogDate.After(b.LogDate.Time)
		}
		return a.ID > b.ID
	})
	return records
}

func share(v, peak decimal.Decimal) float64 {
	if !peak.IsPositive() {
		return 0
	}
	return clamp(v.Div(peak).InexactFloat64())
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
