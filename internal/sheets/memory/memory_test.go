package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

func TestAppendEvent(t *testing.T) {
	s := New()
	ev := core.NewEntryEvent(core.EventEntryCreated, core.LogEntry{
		ID: 3, UserEmail: "a@example.com", LogDate: core.NewDate(2025, 5, 1),
		Activity: "fuel", Amount: decimal.RequireFromString("1999.5"), Category: core.CategoryTransport,
	}, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))

	ref, err := s.AppendEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q", ref)
	}

	again, _ := s.AppendEvent(context.Background(), ev)
	if again != ref || len(s.Events()) != 1 {
		t.Fatalf("redelivery appended twice: ref %q, events %d", again, len(s.Events()))
	}

	row := s.Rows()[0]
	if row[0] != "2025-05-01T10:00:00Z" || row[2] != "entry.created" || row[5] != "2025-05-01" || row[7] != "1999.50" || row[10] != "Transport" {
		t.Fatalf("row = %v", row)
	}
}

func TestAppendEventRequiresID(t *testing.T) {
	if _, err := New().AppendEvent(context.Background(), core.EntryEvent{}); err == nil {
		t.Fatal("expected error for event without id")
	}
}
