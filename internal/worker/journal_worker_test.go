package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/sheets/memory"
)

type sliceSource struct {
	events  []core.EntryEvent
	results []error
	block   bool
}

func (s *sliceSource) ConsumeEntryEvents(ctx context.Context, handler amqp.EventHandler) error {
	for _, ev := range s.events {
		s.results = append(s.results, handler(ctx, ev))
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return errors.New("source drained")
}

type failingJournal struct{}

func (failingJournal) AppendEvent(context.Context, core.EntryEvent) (string, error) {
	return "", errors.New("quota exceeded")
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func events(n int) []core.EntryEvent {
	out := make([]core.EntryEvent, n)
	for i := range out {
		out[i] = core.NewEntryEvent(core.EventEntryCreated, core.LogEntry{ID: int64(i + 1)}, time.Now())
	}
	return out
}

func TestRunJournalsEveryEvent(t *testing.T) {
	journal := memory.New()
	src := &sliceSource{events: events(3), block: true}
	w := NewJournalWorker(src, journal, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(journal.Events()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("journaled %d events, want 3", len(journal.Events()))
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() after cancel = %v, want nil", err)
	}
	if p, f := w.Stats(); p != 3 || f != 0 {
		t.Fatalf("stats = %d/%d", p, f)
	}
}

func TestRunPropagatesSourceFailure(t *testing.T) {
	w := NewJournalWorker(&sliceSource{}, memory.New(), nil, quietLogger())
	if err := w.Run(context.Background()); err == nil || err.Error() != "source drained" {
		t.Fatalf("Run() = %v", err)
	}
}

func TestHandleEventFailureRequeues(t *testing.T) {
	src := &sliceSource{events: events(2)}
	w := NewJournalWorker(src, failingJournal{}, nil, quietLogger())
	_ = w.Run(context.Background())

	if len(src.results) != 2 || src.results[0] == nil || src.results[1] == nil {
		t.Fatalf("handler results = %v", src.results)
	}
	if p, f := w.Stats(); p != 0 || f != 2 {
		t.Fatalf("stats = %d/%d", p, f)
	}
}
