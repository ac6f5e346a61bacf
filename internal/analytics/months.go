package analytics

import (
	"sort"
	"time"

	"tracker/internal/core"
)

// AllTime is the filter selection that keeps every row.
const AllTime = "All Time"

// MonthLayout renders a month bucket, e.g. "Jan 2025".
const MonthLayout = "Jan 2006"

func MonthLabel(d core.Date) string {
	return d.Format(MonthLayout)
}

// ParseMonthLabel returns the first day of the labelled month.
func ParseMonthLabel(label string) (time.Time, error) {
	return time.Parse(MonthLayout, label)
}

// SortMonths orders labels chronologically. Labels that fail to parse sort
// after every valid label, in their original order.
func SortMonths(labels []string, ascending bool) []string {
	type keyed struct {
		label string
		t     time.Time
		ok    bool
	}
	ks := make([]keyed, len(labels))
	for i, l := range labels {
		t, err := ParseMonthLabel(l)
		ks[i] = keyed{label: l, t: t, ok: err == nil}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if ascending {
			return a.t.Before(b.t)
		}
		return a.t.After(b.t)
	})
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.label
	}
	return out
}

// MonthOptions lists AllTime followed by every month present, newest first.
func MonthOptions(entries []core.LogEntry) []string {
	seen := make(map[string]bool)
	var months []string
	for _, e := range entries {
		if e.LogDate.IsZero() {
			continue
		}
		l := MonthLabel(e.LogDate)
		if !seen[l] {
			seen[l] = true
			months = append(months, l)
		}
	}
	return append([]string{AllTime}, SortMonths(months, false)...)
}

// Filter keeps the rows of the selected month, or all rows for AllTime or
// an empty selection.
func Filter(entries []core.LogEntry, selection string) []core.LogEntry {
	if selection == "" || selection == AllTime {
		return entries
	}
	var out []core.LogEntry
	for _, e := range entries {
		if !e.LogDate.IsZero() && MonthLabel(e.LogDate) == selection {
			out = append(out, e)
		}
	}
	return out
}
