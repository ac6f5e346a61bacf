package session

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(maxSize int, ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
	s := NewStore(Config{MaxSize: maxSize, TTL: ttl, DefaultBudget: decimal.NewFromInt(50000)})
	s.now = clock.Now
	return s, clock
}

func TestCreateUsesDefaultBudget(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	sess := s.Create()
	if sess.ID == "" {
		t.Fatal("session id should be set")
	}
	if !sess.Budget().Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("budget = %v", sess.Budget())
	}
	if sess.Draft() != nil {
		t.Fatal("new session must not carry a draft")
	}
}

func TestSlidingTTL(t *testing.T) {
	s, clock := newTestStore(10, time.Hour)
	sess := s.Create()

	clock.Advance(50 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatal("session should still be live")
	}
	clock.Advance(50 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatal("lookup should have extended expiry")
	}
	clock.Advance(61 * time.Minute)
	if _, ok := s.Get(sess.ID); ok {
		t.Fatal("session should have expired")
	}
	if s.Size() != 0 {
		t.Fatalf("expired session not removed, size %d", s.Size())
	}
}

func TestResolve(t *testing.T) {
	s, _ := newTestStore(10, time.Hour)
	first, created := s.Resolve("")
	if !created {
		t.Fatal("empty id should create")
	}
	again, created := s.Resolve(first.ID)
	if created || again != first {
		t.Fatal("known id should resolve to the same session")
	}
	_, created = s.Resolve("not-a-session")
	if !created {
		t.Fatal("unknown id should create")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestStore(2, time.Hour)
	a := s.Create()
	b := s.Create()
	s.Get(a.ID)
	s.Create()

	if _, ok := s.Get(b.ID); ok {
		t.Fatal("least recently used session should be evicted")
	}
	if _, ok := s.Get(a.ID); !ok {
		t.Fatal("recently used session should survive")
	}
}

func TestCleanExpired(t *testing.T) {
	s, clock := newTestStore(10, time.Minute)
	s.Create()
	s.Create()
	clock.Advance(2 * time.Minute)
	keep := s.Create()

	if n := s.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired() = %d, want 2", n)
	}
	if _, ok := s.Get(keep.ID); !ok {
		t.Fatal("fresh session removed")
	}
}

func TestDraftIsCopied(t *testing.T) {
	s, _ := newTestStore(1, time.Hour)
	sess := s.Create()
	sess.SetDraft(core.DraftEntry{Activity: "lunch"})

	d := sess.Draft()
	d.Activity = "changed"
	if sess.Draft().Activity != "lunch" {
		t.Fatal("caller mutation leaked into the session")
	}
	sess.ClearDraft()
	if sess.Draft() != nil {
		t.Fatal("draft not cleared")
	}
}

func TestBeginExtractionIsExclusive(t *testing.T) {
	sess := newSession("x", decimal.Zero)
	if !sess.BeginExtraction() {
		t.Fatal("first extraction should start")
	}
	if sess.BeginExtraction() {
		t.Fatal("second extraction should be refused")
	}
	sess.EndExtraction()
	if sess.Extracting() {
		t.Fatal("extraction flag not cleared")
	}
}

func TestBeginConfirmIsExclusive(t *testing.T) {
	sess := newSession("x", decimal.Zero)
	if _, ok := sess.BeginConfirm(); ok {
		t.Fatal("confirm without a draft should be refused")
	}

	sess.SetDraft(core.DraftEntry{Activity: "lunch"})
	d, ok := sess.BeginConfirm()
	if !ok || d.Activity != "lunch" {
		t.Fatalf("BeginConfirm() = %+v, %v", d, ok)
	}
	if _, ok := sess.BeginConfirm(); ok {
		t.Fatal("second confirm should be refused")
	}
	if sess.Draft() == nil {
		t.Fatal("draft should stay visible while saving")
	}
	sess.EndConfirm(true)
	if sess.Draft() != nil {
		t.Fatal("committed draft not cleared")
	}
}

func TestEndConfirm(t *testing.T) {
	tests := []struct {
		name      string
		committed bool
		replace   bool
		want      string
	}{
		{name: "failed save keeps draft", committed: false, want: "lunch"},
		{name: "newer draft survives commit", committed: true, replace: true, want: "taxi"},
		{name: "newer draft survives failure", committed: false, replace: true, want: "taxi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newSession("x", decimal.Zero)
			sess.SetDraft(core.DraftEntry{Activity: "lunch"})
			if _, ok := sess.BeginConfirm(); !ok {
				t.Fatal("setup failed")
			}
			if tt.replace {
				sess.SetDraft(core.DraftEntry{Activity: "taxi"})
			}
			sess.EndConfirm(tt.committed)

			d := sess.Draft()
			if d == nil || d.Activity != tt.want {
				t.Fatalf("draft = %+v, want %q", d, tt.want)
			}
			if _, ok := sess.BeginConfirm(); !ok {
				t.Fatal("claim not released")
			}
		})
	}
}

func TestStartStopCleanup(t *testing.T) {
	s, _ := newTestStore(1, time.Hour)
	swept := make(chan int, 1)
	s.StartCleanup(time.Millisecond, func(n int) {
		select {
		case swept <- n:
		default:
		}
	})
	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("cleanup never ran")
	}
	s.Stop()
	s.Stop()
}
