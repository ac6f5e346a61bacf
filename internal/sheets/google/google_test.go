package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"tracker/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-123", Sheet: "Journal"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewUnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: t.TempDir() + "/missing.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppendEvent(t *testing.T) {
	var gotPath, gotOption string
	var body struct {
		Values [][]any `json:"values"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOption = r.URL.Query().Get("valueInputOption")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"updates":{"updatedRange":"Journal!A7:L7"}}`)
	})

	ev := core.NewEntryEvent(core.EventEntryDeleted, core.LogEntry{ID: 42, UserEmail: "a@example.com"}, time.Now())
	ref, err := c.AppendEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if ref != "Journal!A7:L7" {
		t.Fatalf("ref = %q", ref)
	}
	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-123/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotOption != "RAW" {
		t.Fatalf("valueInputOption = %q", gotOption)
	}
	if len(body.Values) != 1 || body.Values[0][1] != ev.ID || body.Values[0][2] != "entry.deleted" {
		t.Fatalf("values = %v", body.Values)
	}
}

func TestAppendEventAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})
	ev := core.NewEntryEvent(core.EventEntryCreated, core.LogEntry{ID: 1}, time.Now())
	if _, err := c.AppendEvent(context.Background(), ev); err == nil || !strings.Contains(err.Error(), "append to sheet Journal") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureHeaderSkipsFilledSheet(t *testing.T) {
	var writes int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			writes++
			_, _ = io.WriteString(w, `{}`)
			return
		}
		_, _ = io.WriteString(w, `{"values":[["Occurred At"]]}`)
	})
	if err := c.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	if writes != 0 {
		t.Fatalf("header rewritten %d times", writes)
	}
}

func TestEnsureHeaderWritesEmptySheet(t *testing.T) {
	var writes int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			writes++
		}
		_, _ = io.WriteString(w, `{}`)
	})
	if err := c.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	if writes != 1 {
		t.Fatalf("header writes = %d, want 1", writes)
	}
}

func TestAppendWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.AppendEvent(context.Background(), core.EntryEvent{ID: "x"}); err == nil {
		t.Fatal("expected error with nil service")
	}
}
