package sheets

import (
	"context"
	"time"

	"tracker/internal/core"
)

// JournalWriter appends one row per change event to an external journal.
type JournalWriter interface {
	AppendEvent(ctx context.Context, ev core.EntryEvent) (rowRef string, err error)
}

// Header names the journal columns in the order Row fills them.
var Header = []any{
	"Occurred At", "Event ID", "Event", "Entry ID", "User",
	"Date", "Activity", "Amount", "Entity", "Payment Mode", "Category", "Remark",
}

// Row lays out an event as a journal row.
func Row(ev core.EntryEvent) []any {
	e := ev.Entry
	return []any{
		ev.OccurredAt.UTC().Format(time.RFC3339),
		ev.ID,
		string(ev.Type),
		e.ID,
		e.UserEmail,
		e.LogDate.String(),
		e.Activity,
		e.Amount.StringFixed(core.AmountScale),
		e.Entity,
		e.PaymentMode,
		e.Category.String(),
		e.Remark,
	}
}
