package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/metrics"
)

// Repository is the persistence the entry service needs.
type Repository interface {
	Insert(ctx context.Context, e core.LogEntry) (int64, error)
	FetchByUser(ctx context.Context, email string) ([]core.LogEntry, error)
	Get(ctx context.Context, id int64, email string) (core.LogEntry, error)
	Update(ctx context.Context, id int64, email string, d core.DraftEntry) (core.MutationResult, error)
	Delete(ctx context.Context, id int64, email string) (core.MutationResult, error)
	Close() error
}

// EventPublisher announces committed changes.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, ev core.EntryEvent) error
	Close() error
}

// EntryService writes entries to the store and, after each committed
// change, publishes an EntryEvent. Publishing never fails the write.
type EntryService struct {
	store     Repository
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *applog.Logger
	now       func() time.Time
}

type Option func(*EntryService)

func WithPublisher(p EventPublisher) Option {
	return func(s *EntryService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *EntryService) { s.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *EntryService) { s.logger = l }
}

func NewEntryService(store Repository, opts ...Option) *EntryService {
	s := &EntryService{
		store:  store,
		logger: applog.New(applog.Config{Component: applog.ComponentWorkflow}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists the draft for owner and returns the stored entry.
func (s *EntryService) Create(ctx context.Context, owner string, d core.DraftEntry) (core.LogEntry, error) {
	if err := d.Validate(); err != nil {
		return core.LogEntry{}, fmt.Errorf("create entry: %w", err)
	}
	e := d.Entry(owner)
	id, err := s.store.Insert(ctx, e)
	if err != nil {
		s.metrics.RecordMutation(applog.OpCreate, metrics.OutcomeFailure)
		return core.LogEntry{}, fmt.Errorf("create entry: %w", err)
	}
	e.ID = id
	s.metrics.RecordMutation(applog.OpCreate, core.MutationApplied.String())
	s.publish(ctx, core.EventEntryCreated, e)
	return e, nil
}

func (s *EntryService) List(ctx context.Context, owner string) ([]core.LogEntry, error) {
	entries, err := s.store.FetchByUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *EntryService) Get(ctx context.Context, id int64, owner string) (core.LogEntry, error) {
	e, err := s.store.Get(ctx, id, owner)
	if err != nil {
		return core.LogEntry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// Update overwrites the editable fields of an owned entry. A foreign or
// missing id yields MutationNotFoundOrNotOwned and a nil error.
func (s *EntryService) Update(ctx context.Context, id int64, owner string, d core.DraftEntry) (core.MutationResult, error) {
	if err := d.Validate(); err != nil {
		return 0, fmt.Errorf("update entry %d: %w", id, err)
	}
	res, err := s.store.Update(ctx, id, owner, d)
	if err != nil {
		s.metrics.RecordMutation(applog.OpUpdate, metrics.OutcomeFailure)
		return 0, fmt.Errorf("update entry %d: %w", id, err)
	}
	s.metrics.RecordMutation(applog.OpUpdate, res.String())
	if res == core.MutationApplied {
		e := d.Entry(owner)
		e.ID = id
		s.publish(ctx, core.EventEntryUpdated, e)
	}
	return res, nil
}

// Delete removes an owned entry. A foreign or missing id yields
// MutationNotFoundOrNotOwned and a nil error.
func (s *EntryService) Delete(ctx context.Context, id int64, owner string) (core.MutationResult, error) {
	// The row is read first only so the delete event can carry it.
	before, getErr := s.store.Get(ctx, id, owner)

	res, err := s.store.Delete(ctx, id, owner)
	if err != nil {
		s.metrics.RecordMutation(applog.OpDelete, metrics.OutcomeFailure)
		return 0, fmt.Errorf("delete entry %d: %w", id, err)
	}
	s.metrics.RecordMutation(applog.OpDelete, res.String())
	if res == core.MutationApplied {
		if getErr != nil {
			before = core.LogEntry{ID: id, UserEmail: owner}
		}
		s.publish(ctx, core.EventEntryDeleted, before)
	}
	return res, nil
}

func (s *EntryService) publish(ctx context.Context, t core.EventType, e core.LogEntry) {
	if s.publisher == nil {
		return
	}
	ev := core.NewEntryEvent(t, e, s.now())
	if err := s.publisher.PublishEntryEvent(ctx, ev); err != nil {
		s.metrics.RecordPublished(string(t), metrics.OutcomeFailure)
		s.logger.ErrorContext(ctx, "Failed to publish entry event",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventID, ev.ID,
			applog.FieldEventType, string(t),
			applog.FieldEntryID, e.ID,
			applog.FieldError, err.Error())
		return
	}
	s.metrics.RecordPublished(string(t), metrics.OutcomeSuccess)
}

// Close closes both storage and publisher connections
func (s *EntryService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %w", errors.Join(errs...))
	}

	return nil
}
