// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: the entry form shared by confirmation and edit, path ids, the
// month filter and bodies arriving as JSON or form data.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"tracker/internal/analytics"
	"tracker/internal/core"
)

// Form field names of the entry form.
const (
	FieldLogDate     = "log_date"
	FieldActivity    = "activity"
	FieldAmount      = "amount"
	FieldEntity      = "entity"
	FieldPaymentMode = "payment_mode"
	FieldCategory    = "category"
	FieldRemark      = "remark"
)

// maxTextLen bounds every free-text form field, in runes.
const maxTextLen = 500

// maxBodyBytes bounds request bodies read by RequestBodyParser.
const maxBodyBytes = 64 << 10

var ErrInvalidID = errors.New("invalid entry id")

// FormError lists every problem found in a submitted entry form.
type FormError struct {
	Problems []string
}

func (e *FormError) Error() string {
	return strings.Join(e.Problems, " ")
}

// ParseDraftForm reads the entry form. A category outside the closed set
// becomes Others; every other problem is collected into a *FormError.
func ParseDraftForm(form url.Values) (core.DraftEntry, error) {
	var problems []string
	d := core.DraftEntry{
		Activity:    sanitizeInput(form.Get(FieldActivity)),
		Entity:      sanitizeInput(form.Get(FieldEntity)),
		PaymentMode: sanitizeInput(form.Get(FieldPaymentMode)),
		Category:    core.CategoryOrOthers(strings.TrimSpace(form.Get(FieldCategory))),
		Remark:      sanitizeInput(form.Get(FieldRemark)),
	}

	if raw := strings.TrimSpace(form.Get(FieldLogDate)); raw == "" {
		problems = append(problems, "Date is required.")
	} else if date, err := core.ParseFormDate(raw); err != nil {
		problems = append(problems, "Date must be in YYYY-MM-DD format.")
	} else {
		d.LogDate = date
	}

	if amount, err := core.ParseAmount(form.Get(FieldAmount)); err != nil {
		problems = append(problems, "Amount must be a number.")
	} else {
		d.Amount = amount
	}

	for _, f := range []struct{ label, value string }{
		{"Activity", d.Activity}, {"Entity", d.Entity}, {"Payment mode", d.PaymentMode}, {"Remark", d.Remark},
	} {
		if utf8.RuneCountInString(f.value) > maxTextLen {
			problems = append(problems, f.label+" is too long.")
		}
	}

	if len(problems) > 0 {
		return core.DraftEntry{}, &FormError{Problems: problems}
	}
	return d, nil
}

// ParseEntryID parses a positive row id from a path segment.
func ParseEntryID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseMonthSelection returns the requested month when it is one of
// options, else All Time.
func ParseMonthSelection(query url.Values, options []string) string {
	month := strings.TrimSpace(query.Get("month"))
	if month == "" || !slices.Contains(options, month) {
		return analytics.AllTime
	}
	return month
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once. A body over maxBodyBytes makes
// Parse fail.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
