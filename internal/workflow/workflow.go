// Package workflow drives a session from free text to a committed entry:
// Idle, then Extracting, then AwaitingConfirmation, then back to Idle on
// confirm, discard or a failed extraction.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tracker/internal/core"
	"tracker/internal/extract"
	applog "tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/session"
)

type State int

const (
	StateIdle State = iota
	StateExtracting
	StateAwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "unknown"
	}
}

// ErrNoPendingDraft is returned by Confirm when the session holds no draft.
var ErrNoPendingDraft = errors.New("no pending draft")

// ErrConfirmInProgress is returned by Confirm while another confirm of the
// same draft is still saving.
var ErrConfirmInProgress = errors.New("confirm already in progress")

type Extractor interface {
	Extract(ctx context.Context, text string) (core.DraftEntry, error)
}

type EntryCreator interface {
	Create(ctx context.Context, owner string, d core.DraftEntry) (core.LogEntry, error)
}

// AnalyzeOutcome is the result of one Analyze call. Exactly one of Draft
// and Message is set.
type AnalyzeOutcome struct {
	Draft   *core.DraftEntry
	Message string
}

func (o AnalyzeOutcome) OK() bool { return o.Draft != nil }

type Workflow struct {
	extractor Extractor
	creator   EntryCreator
	metrics   *metrics.Metrics
	logger    *applog.Logger
	now       func() time.Time
}

type Option func(*Workflow)

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func New(extractor Extractor, creator EntryCreator, opts ...Option) *Workflow {
	w := &Workflow{
		extractor: extractor,
		creator:   creator,
		logger:    applog.New(applog.Config{Component: applog.ComponentWorkflow}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CurrentState derives the state from what the session holds.
func CurrentState(sess *session.Session) State {
	switch {
	case sess.Extracting():
		return StateExtracting
	case sess.Draft() != nil:
		return StateAwaitingConfirmation
	default:
		return StateIdle
	}
}

// Analyze extracts a draft from text. On success the draft replaces any
// pending one; on failure the pending draft is dropped and the outcome
// carries the message for the user. It never returns a Go error.
func (w *Workflow) Analyze(ctx context.Context, sess *session.Session, text string) AnalyzeOutcome {
	if !sess.BeginExtraction() {
		return AnalyzeOutcome{Message: "An analysis is already running for this session."}
	}
	defer sess.EndExtraction()

	start := w.now()
	d, err := w.extractor.Extract(ctx, text)
	elapsed := w.now().Sub(start)
	if err != nil {
		sess.ClearDraft()
		w.metrics.RecordExtraction(metrics.OutcomeFailure, elapsed)
		w.logger.WarnContext(ctx, "Extraction failed",
			applog.FieldOperation, applog.OpAnalyze,
			applog.FieldSession, sess.ID,
			applog.FieldError, err.Error())
		return AnalyzeOutcome{Message: userMessage(err)}
	}

	sess.SetDraft(d)
	w.metrics.RecordExtraction(metrics.OutcomeSuccess, elapsed)
	w.logger.DebugContext(ctx, "Draft extracted",
		applog.FieldOperation, applog.OpAnalyze,
		applog.FieldSession, sess.ID,
		applog.FieldCategory, d.Category.String(),
		applog.FieldLogDate, d.LogDate.String())
	return AnalyzeOutcome{Draft: &d}
}

// Confirm commits the user-edited fields for owner and clears the draft.
// The submitted fields win over the draft. When the store fails the draft
// is kept so the user can retry. Only one confirm per session runs at a
// time.
func (w *Workflow) Confirm(ctx context.Context, sess *session.Session, owner string, edited core.DraftEntry) (core.LogEntry, error) {
	if _, ok := sess.BeginConfirm(); !ok {
		if sess.Draft() == nil {
			return core.LogEntry{}, ErrNoPendingDraft
		}
		return core.LogEntry{}, ErrConfirmInProgress
	}
	e, err := w.creator.Create(ctx, owner, edited)
	sess.EndConfirm(err == nil)
	if err != nil {
		return core.LogEntry{}, fmt.Errorf("confirm draft: %w", err)
	}
	return e, nil
}

// Discard drops the pending draft, if any.
func (w *Workflow) Discard(sess *session.Session) {
	sess.ClearDraft()
}

func userMessage(err error) string {
	var ee *extract.Error
	if errors.As(err, &ee) && ee.UserMessage != "" {
		return ee.UserMessage
	}
	return "AI Error: " + err.Error()
}
