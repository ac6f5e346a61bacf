package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
	"tracker/internal/extract"
	"tracker/internal/session"
)

type stubExtractor struct {
	draft core.DraftEntry
	err   error
	hook  func()
}

func (s *stubExtractor) Extract(context.Context, string) (core.DraftEntry, error) {
	if s.hook != nil {
		s.hook()
	}
	return s.draft, s.err
}

type stubCreator struct {
	err     error
	delay   time.Duration
	hook    func()
	mu      sync.Mutex
	created []core.LogEntry
}

func (s *stubCreator) Create(_ context.Context, owner string, d core.DraftEntry) (core.LogEntry, error) {
	if s.hook != nil {
		s.hook()
	}
	time.Sleep(s.delay)
	if s.err != nil {
		return core.LogEntry{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := d.Entry(owner)
	e.ID = int64(len(s.created) + 1)
	s.created = append(s.created, e)
	return e, nil
}

func newSession() *session.Session {
	return session.NewStore(session.Config{MaxSize: 10, TTL: time.Hour}).Create()
}

func sampleDraft(activity string) core.DraftEntry {
	return core.DraftEntry{
		LogDate:  core.NewDate(2025, 1, 2),
		Activity: activity,
		Amount:   decimal.NewFromInt(500),
		Category: core.CategoryFood,
	}
}

func TestAnalyzeStoresDraft(t *testing.T) {
	sess := newSession()
	ext := &stubExtractor{draft: sampleDraft("dinner")}
	ext.hook = func() {
		if CurrentState(sess) != StateExtracting {
			t.Errorf("state during extraction = %v", CurrentState(sess))
		}
	}
	w := New(ext, &stubCreator{})

	out := w.Analyze(context.Background(), sess, "swiggy dinner 500")
	if !out.OK() || out.Draft.Activity != "dinner" {
		t.Fatalf("outcome = %+v", out)
	}
	if CurrentState(sess) != StateAwaitingConfirmation {
		t.Fatalf("state = %v", CurrentState(sess))
	}
}

func TestAnalyzeOverwritesPendingDraft(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("old"))
	w := New(&stubExtractor{draft: sampleDraft("new")}, &stubCreator{})

	w.Analyze(context.Background(), sess, "new thing")
	if sess.Draft().Activity != "new" {
		t.Fatalf("draft = %+v", sess.Draft())
	}
}

func TestAnalyzeFailureClearsDraft(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("old"))
	err := &extract.Error{UserMessage: "AI Error: the reply could not be understood", Err: errors.New("bad json")}
	w := New(&stubExtractor{err: err}, &stubCreator{})

	out := w.Analyze(context.Background(), sess, "???")
	if out.OK() || out.Message != err.UserMessage {
		t.Fatalf("outcome = %+v", out)
	}
	if CurrentState(sess) != StateIdle {
		t.Fatalf("state = %v, want idle", CurrentState(sess))
	}
}

func TestAnalyzeRefusesConcurrentExtraction(t *testing.T) {
	sess := newSession()
	if !sess.BeginExtraction() {
		t.Fatal("setup failed")
	}
	w := New(&stubExtractor{draft: sampleDraft("x")}, &stubCreator{})
	if out := w.Analyze(context.Background(), sess, "x"); out.OK() {
		t.Fatal("second extraction should be refused")
	}
}

func TestConfirmUsesEditedFields(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("dinner"))
	creator := &stubCreator{}
	w := New(&stubExtractor{}, creator)

	edited := sampleDraft("team dinner")
	edited.Amount = decimal.NewFromInt(650)
	edited.Category = core.CategoryEntertainment
	e, err := w.Confirm(context.Background(), sess, "a@example.com", edited)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if e.Activity != "team dinner" || e.Category != core.CategoryEntertainment || !e.Amount.Equal(decimal.NewFromInt(650)) {
		t.Fatalf("entry = %+v", e)
	}
	if CurrentState(sess) != StateIdle {
		t.Fatalf("state = %v", CurrentState(sess))
	}
}

func TestConfirmFailureKeepsDraft(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("dinner"))
	w := New(&stubExtractor{}, &stubCreator{err: errors.New("database is locked")})

	if _, err := w.Confirm(context.Background(), sess, "a@example.com", sampleDraft("dinner")); err == nil {
		t.Fatal("expected error")
	}
	if CurrentState(sess) != StateAwaitingConfirmation {
		t.Fatalf("draft should survive a failed commit, state = %v", CurrentState(sess))
	}
}

func TestConfirmWithoutDraft(t *testing.T) {
	w := New(&stubExtractor{}, &stubCreator{})
	if _, err := w.Confirm(context.Background(), newSession(), "a@example.com", sampleDraft("x")); !errors.Is(err, ErrNoPendingDraft) {
		t.Fatalf("error = %v, want ErrNoPendingDraft", err)
	}
}

func TestConcurrentConfirmSavesOnce(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("dinner"))
	creator := &stubCreator{delay: 50 * time.Millisecond}
	w := New(&stubExtractor{}, creator)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.Confirm(context.Background(), sess, "a@example.com", sampleDraft("dinner"))
		}(i)
	}
	wg.Wait()

	if len(creator.created) != 1 {
		t.Fatalf("rows created = %d, want 1", len(creator.created))
	}
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			if !errors.Is(err, ErrConfirmInProgress) && !errors.Is(err, ErrNoPendingDraft) {
				t.Errorf("unexpected error %v", err)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("failed confirms = %d, want 1 (errs %v)", failed, errs)
	}
	if CurrentState(sess) != StateIdle {
		t.Fatalf("state = %v", CurrentState(sess))
	}
}

func TestConfirmKeepsDraftAnalyzedMidSave(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("dinner"))
	creator := &stubCreator{hook: func() { sess.SetDraft(sampleDraft("taxi")) }}
	w := New(&stubExtractor{}, creator)

	if _, err := w.Confirm(context.Background(), sess, "a@example.com", sampleDraft("dinner")); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	d := sess.Draft()
	if d == nil || d.Activity != "taxi" {
		t.Fatalf("newer draft lost, draft = %+v", d)
	}
}

func TestDiscard(t *testing.T) {
	sess := newSession()
	sess.SetDraft(sampleDraft("dinner"))
	New(&stubExtractor{}, &stubCreator{}).Discard(sess)
	if CurrentState(sess) != StateIdle {
		t.Fatalf("state = %v", CurrentState(sess))
	}
}
