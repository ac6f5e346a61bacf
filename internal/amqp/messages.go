package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"tracker/internal/core"
)

// ErrInvalidMessage marks a delivery that can never be processed.
var ErrInvalidMessage = errors.New("invalid entry event message")

// EncodeEvent converts the event to JSON bytes
func EncodeEvent(ev core.EntryEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a delivery body. Events without an id or with an
// unknown type are rejected.
func DecodeEvent(data []byte) (core.EntryEvent, error) {
	var ev core.EntryEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.EntryEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if ev.ID == "" {
		return core.EntryEvent{}, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	switch ev.Type {
	case core.EventEntryCreated, core.EventEntryUpdated, core.EventEntryDeleted:
	default:
		return core.EntryEvent{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, ev.Type)
	}
	return ev, nil
}
