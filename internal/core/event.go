package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a change applied to a LogEntry.
type EventType string

const (
	EventEntryCreated EventType = "entry.created"
	EventEntryUpdated EventType = "entry.updated"
	EventEntryDeleted EventType = "entry.deleted"
)

// EntryEvent is published after a mutation has been committed.
type EntryEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Entry      LogEntry  `json:"entry"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEntryEvent(t EventType, e LogEntry, at time.Time) EntryEvent {
	return EntryEvent{
		ID:         uuid.NewString(),
		Type:       t,
		Entry:      e,
		OccurredAt: at.UTC(),
	}
}
