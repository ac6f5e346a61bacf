package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/amqp"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/sheets"
)

// EventSource delivers change events until its context ends.
type EventSource interface {
	ConsumeEntryEvents(ctx context.Context, handler amqp.EventHandler) error
}

// JournalWorker copies change events from the bus into the journal sink.
type JournalWorker struct {
	source   EventSource
	journal  sheets.JournalWriter
	metrics  *metrics.Metrics
	logger   *applog.Logger
	interval time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

func NewJournalWorker(source EventSource, journal sheets.JournalWriter, m *metrics.Metrics, logger *applog.Logger) *JournalWorker {
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentWorker})
	}
	return &JournalWorker{
		source:   source,
		journal:  journal,
		metrics:  m,
		logger:   logger,
		interval: 5 * time.Minute,
	}
}

// HandleEvent appends one event to the journal. An error requeues the
// delivery.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev core.EntryEvent) error {
	ref, err := w.journal.AppendEvent(ctx, ev)
	if err != nil {
		w.failed.Add(1)
		w.metrics.RecordConsumed(string(ev.Type), metrics.OutcomeFailure)
		return fmt.Errorf("append event %s to journal: %w", ev.ID, err)
	}
	w.processed.Add(1)
	w.metrics.RecordConsumed(string(ev.Type), metrics.OutcomeSuccess)

	w.logger.InfoContext(ctx, "Journaled entry event",
		applog.FieldOperation, applog.OpAppend,
		applog.FieldEventID, ev.ID,
		applog.FieldEventType, string(ev.Type),
		applog.FieldEntryID, ev.Entry.ID,
		applog.FieldJournalRef, ref)
	return nil
}

// Run consumes until ctx is cancelled, logging throughput periodically.
// A cancelled context is a clean stop and returns nil.
func (w *JournalWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.source.ConsumeEntryEvents(ctx, w.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				w.logger.InfoContext(ctx, "Journal worker stats",
					"processed", w.processed.Load(),
					"failed", w.failed.Load())
			}
		}
	})

	err := g.Wait()
	w.logger.Info("Journal worker stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns how many events were journaled and how many failed.
func (w *JournalWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}
