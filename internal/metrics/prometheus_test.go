package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/entries", 201, 15*time.Millisecond)
	m.RecordExtraction(OutcomeSuccess, time.Second)
	m.RecordMutation("update", "not_found_or_not_owned")
	m.RecordPublished("entry.created", OutcomeFailure)
	m.SetActiveSessions(3)

	out := scrape(t, m)
	for _, want := range []string{
		`tracker_http_requests_total{method="POST",route="/entries",status="201"} 1`,
		`tracker_extractions_total{outcome="success"} 1`,
		`tracker_entry_mutations_total{operation="update",result="not_found_or_not_owned"} 1`,
		`tracker_events_published_total{event_type="entry.created",status="failure"} 1`,
		`tracker_active_sessions 3`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP(http.MethodGet, "/", 200, time.Millisecond)
	m.RecordExtraction(OutcomeFailure, time.Millisecond)
	m.RecordMutation("delete", "applied")
	m.RecordPublished("entry.deleted", OutcomeSuccess)
	m.RecordConsumed("entry.deleted", OutcomeSuccess)
	m.SetActiveSessions(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil handler status = %d", rec.Code)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordMutation("create", "applied")
	if strings.Contains(scrape(t, b), `tracker_entry_mutations_total{operation="create"`) {
		t.Fatal("collectors leaked across registries")
	}
}
