package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tracker/internal/analytics"
	"tracker/internal/core"
)

func entryForm(overrides map[string]string) url.Values {
	form := url.Values{
		FieldLogDate:     {"2025-01-15"},
		FieldActivity:    {"Lunch"},
		FieldAmount:      {"250"},
		FieldEntity:      {"Cafe"},
		FieldPaymentMode: {"UPI"},
		FieldCategory:    {"Food"},
		FieldRemark:      {""},
	}
	for k, v := range overrides {
		form.Set(k, v)
	}
	return form
}

func TestParseDraftForm(t *testing.T) {
	tests := []struct {
		name         string
		overrides    map[string]string
		wantErr      bool
		wantProblems int
		check        func(t *testing.T, d core.DraftEntry)
	}{
		{
			name: "valid form",
			check: func(t *testing.T, d core.DraftEntry) {
				if d.LogDate.String() != "2025-01-15" || d.Activity != "Lunch" || d.Amount.StringFixed(2) != "250.00" || d.Category != core.CategoryFood {
					t.Errorf("draft = %+v", d)
				}
			},
		},
		{
			name:      "unknown category becomes Others",
			overrides: map[string]string{FieldCategory: "food"},
			check: func(t *testing.T, d core.DraftEntry) {
				if d.Category != core.CategoryOthers {
					t.Errorf("category = %v, want Others", d.Category)
				}
			},
		},
		{
			name:      "separators and control characters",
			overrides: map[string]string{FieldAmount: "₹1,250.50", FieldActivity: "  Fuel\x07 "},
			check: func(t *testing.T, d core.DraftEntry) {
				if d.Amount.StringFixed(2) != "1250.50" || d.Activity != "Fuel" {
					t.Errorf("draft = %+v", d)
				}
			},
		},
		{
			name:         "trailing garbage after date",
			overrides:    map[string]string{FieldLogDate: "2025-01-15xyz"},
			wantErr:      true,
			wantProblems: 1,
		},
		{
			name:         "bad date and amount are both reported",
			overrides:    map[string]string{FieldLogDate: "15/01/2025", FieldAmount: "lots"},
			wantErr:      true,
			wantProblems: 2,
		},
		{
			name:         "missing date",
			overrides:    map[string]string{FieldLogDate: ""},
			wantErr:      true,
			wantProblems: 1,
		},
		{
			name:         "too long remark",
			overrides:    map[string]string{FieldRemark: strings.Repeat("x", maxTextLen+1)},
			wantErr:      true,
			wantProblems: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDraftForm(entryForm(tt.overrides))
			if tt.wantErr {
				var fe *FormError
				if !errors.As(err, &fe) {
					t.Fatalf("error = %v, want *FormError", err)
				}
				if len(fe.Problems) != tt.wantProblems {
					t.Fatalf("problems = %v, want %d", fe.Problems, tt.wantProblems)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDraftForm() error = %v", err)
			}
			tt.check(t, d)
		})
	}
}

func TestParseEntryID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseEntryID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseEntryID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseMonthSelection(t *testing.T) {
	options := []string{analytics.AllTime, "Feb 2025", "Jan 2025"}
	tests := []struct {
		query string
		want  string
	}{
		{"", analytics.AllTime},
		{"month=Jan+2025", "Jan 2025"},
		{"month=Mar+2030", analytics.AllTime},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := ParseMonthSelection(q, options); got != tt.want {
			t.Errorf("ParseMonthSelection(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantText    string
	}{
		{"form", "application/x-www-form-urlencoded", "text=Paid+500+for+lunch", "Paid 500 for lunch"},
		{"json", "application/json", `{"text":"  Paid 500  ","limit":1000}`, "Paid 500"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get("text"); got != tt.wantText {
				t.Errorf("Get(text) = %q, want %q", got, tt.wantText)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/budget", strings.NewReader(`{"limit":1000}`))
	req.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(req)
	_ = p.Parse()
	if got := p.Get("limit"); got != "1000" {
		t.Errorf("Get(limit) = %q", got)
	}
}

func TestRequestBodyParserRejectsOversizedBody(t *testing.T) {
	body := "text=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	err := NewRequestBodyParser(req).Parse()
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Parse() error = %v, want *http.MaxBytesError", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body[:maxBodyBytes]))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := NewRequestBodyParser(req).Parse(); err != nil {
		t.Fatalf("Parse() at the limit error = %v", err)
	}
}

func TestRequestBodyParserMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"text":`))
	req.Header.Set("Content-Type", "application/json")
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
