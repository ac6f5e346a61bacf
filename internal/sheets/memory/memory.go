package memory

import (
	"context"
	"fmt"
	"sync"

	"tracker/internal/core"
	ports "tracker/internal/sheets"
)

var _ ports.JournalWriter = (*Store)(nil)

// Store keeps journal rows in memory. Used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu     sync.Mutex
	events []core.EntryEvent
	seen   map[string]int
}

func New() *Store {
	return &Store{seen: make(map[string]int)}
}

// AppendEvent stores the event and returns a synthetic row reference.
// Redelivered events keep their first reference.
func (s *Store) AppendEvent(_ context.Context, ev core.EntryEvent) (string, error) {
	if ev.ID == "" {
		return "", fmt.Errorf("append event: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.seen[ev.ID]; ok {
		return fmt.Sprintf("mem:%d", n), nil
	}
	s.events = append(s.events, ev)
	s.seen[ev.ID] = len(s.events)
	return fmt.Sprintf("mem:%d", len(s.events)), nil
}

// Events returns a copy of the stored events in append order.
func (s *Store) Events() []core.EntryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.EntryEvent(nil), s.events...)
}

// Rows returns the stored events laid out as journal rows.
func (s *Store) Rows() [][]any {
	events := s.Events()
	out := make([][]any, len(events))
	for i, ev := range events {
		out[i] = ports.Row(ev)
	}
	return out
}
