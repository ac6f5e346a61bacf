// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing HTMX responses.
// It provides a fluent API for building HX-Trigger headers and consistent
// notice markup.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events raised through HX-Trigger. The dashboard listens for
// all of them and re-reads the full row set.
const (
	EventEntrySaved    = "entry:saved"
	EventEntryUpdated  = "entry:updated"
	EventEntryDeleted  = "entry:deleted"
	EventBudgetUpdated = "budget:updated"
	EventDraftCleared  = "draft:cleared"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerEntrySaved raises entry:saved carrying the new id.
func (b *HTMXResponseBuilder) TriggerEntrySaved(id int64) *HTMXResponseBuilder {
	return b.Trigger(EventEntrySaved, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerEntryUpdated(id int64) *HTMXResponseBuilder {
	return b.Trigger(EventEntryUpdated, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerEntryDeleted(id int64) *HTMXResponseBuilder {
	return b.Trigger(EventEntryDeleted, map[string]int64{"id": id})
}

func (b *HTMXResponseBuilder) TriggerBudgetUpdated() *HTMXResponseBuilder {
	return b.Trigger(EventBudgetUpdated, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerDraftCleared() *HTMXResponseBuilder {
	return b.Trigger(EventDraftCleared, struct{}{})
}

// NoticeKind selects the styling of a notice box.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
	NoticeInfo    NoticeKind = "info"
)

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Notice sets the body to an escaped notice box.
func (b *HTMXResponseBuilder) Notice(kind NoticeKind, message string) *HTMXResponseBuilder {
	return b.BodyHTML(noticeHTML(kind, message))
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

func noticeHTML(kind NoticeKind, message string) string {
	role := "status"
	if kind == NoticeError {
		role = "alert"
	}
	return `<div class="notice notice-` + string(kind) + `" role="` + role + `">` +
		template.HTMLEscapeString(message) + `</div>`
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().Status(statusCode).Notice(NoticeError, message)
}

// WarningResponse reports a no-op outcome. It is not an HTTP error.
func WarningResponse(message string) *HTMXResponseBuilder {
	return NewHTMXResponse().Notice(NoticeWarning, message)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsError is written by the rate limiter.
func TooManyRequestsError() *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.").
		Header("Retry-After", "60")
}
