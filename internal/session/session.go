package session

import (
	"sync"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

// Session is the server-side state of one browser. It holds at most one
// pending draft and the budget limit used by the dashboard.
type Session struct {
	ID string

	mu         sync.Mutex
	draft      *core.DraftEntry
	extracting bool
	// confirming is the draft a Confirm is committing, nil when idle.
	confirming *core.DraftEntry
	budget     decimal.Decimal
}

func newSession(id string, budget decimal.Decimal) *Session {
	return &Session{ID: id, budget: budget}
}

// Draft returns a copy of the pending draft, or nil when there is none.
func (s *Session) Draft() *core.DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	d := *s.draft
	return &d
}

// SetDraft replaces any pending draft.
func (s *Session) SetDraft(d core.DraftEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = &d
}

func (s *Session) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// BeginExtraction marks an extraction as in flight. It reports false when
// another extraction for this session is already running.
func (s *Session) BeginExtraction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extracting {
		return false
	}
	s.extracting = true
	return true
}

func (s *Session) EndExtraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracting = false
}

func (s *Session) Extracting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extracting
}

// BeginConfirm claims the pending draft for a commit. It reports false when
// there is no draft or another confirm is already saving one. The draft
// stays visible until EndConfirm.
func (s *Session) BeginConfirm() (*core.DraftEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || s.confirming != nil {
		return nil, false
	}
	s.confirming = s.draft
	d := *s.draft
	return &d, true
}

// EndConfirm releases the claim taken by BeginConfirm. A committed draft is
// cleared only if no newer draft replaced it meanwhile; an uncommitted one
// is left in place for a retry.
func (s *Session) EndConfirm(committed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if committed && s.draft == s.confirming {
		s.draft = nil
	}
	s.confirming = nil
}

// Budget returns the per-session budget limit.
func (s *Session) Budget() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget
}

func (s *Session) SetBudget(limit decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = limit
}
