package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
	applog "tracker/internal/log"
)

// ErrExtraction marks every failure to turn text into a draft.
var ErrExtraction = errors.New("extraction failed")

// ErrEmptyInput is returned before any completion call for blank text.
var ErrEmptyInput = errors.New("nothing to analyze")

// Completer sends one system instruction and one user message to a chat
// completion service and returns the raw JSON content of the reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Error carries the message shown to the user alongside the cause.
type Error struct {
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return e.UserMessage + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// Client turns free text into a DraftEntry. It is stateless: no retries,
// caching or rate limiting.
type Client struct {
	completer Completer
	now       func() time.Time
	logger    *applog.Logger
}

type Option func(*Client)

// WithClock overrides the reference date source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(completer Completer, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		now:       time.Now,
		logger:    applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentExtract}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract asks the completion service for the fields of text. Missing or
// unusable values take their defaults: amount 0, category Others, date today.
func (c *Client) Extract(ctx context.Context, text string) (core.DraftEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.DraftEntry{}, &Error{UserMessage: "Please describe the transaction first.", Err: ErrEmptyInput}
	}

	today := c.now()
	raw, err := c.completer.Complete(ctx, BuildPrompt(today), text)
	if err != nil {
		c.logger.WarnContext(ctx, "Completion request failed",
			applog.FieldOperation, applog.OpAnalyze,
			applog.FieldErrorType, applog.ErrorTypeExtraction,
			applog.FieldError, err.Error())
		return core.DraftEntry{}, &Error{UserMessage: "AI Error: the completion service could not be reached", Err: err}
	}

	draft, err := ParseResponse(raw, today)
	if err != nil {
		c.logger.WarnContext(ctx, "Completion response unusable",
			applog.FieldOperation, applog.OpAnalyze,
			applog.FieldErrorType, applog.ErrorTypeExtraction,
			applog.FieldError, err.Error())
		return core.DraftEntry{}, &Error{UserMessage: "AI Error: the reply could not be understood", Err: err}
	}
	return draft, nil
}

// ParseResponse decodes a JSON object reply into a draft. Only a reply that
// is not a JSON object is an error; individual fields fall back to defaults.
func ParseResponse(raw string, today time.Time) (core.DraftEntry, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return core.DraftEntry{}, fmt.Errorf("decode reply: %w", err)
	}
	if fields == nil {
		return core.DraftEntry{}, errors.New("decode reply: not a JSON object")
	}

	d := core.DraftEntry{
		LogDate:     core.DateOf(today),
		Activity:    stringField(fields, KeyActivity),
		Amount:      amountField(fields[KeyAmount]),
		Entity:      stringField(fields, KeyEntity),
		PaymentMode: stringField(fields, KeyPaymentMode),
		Category:    core.CategoryOrOthers(stringField(fields, KeyCategory)),
		Remark:      stringField(fields, KeyRemark),
	}
	if s := stringField(fields, KeyExtractedDate); s != "" {
		if date, err := core.ParseDate(s); err == nil {
			d.LogDate = date
		}
	}
	return d, nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return ""
	}
}

func amountField(v any) decimal.Decimal {
	switch a := v.(type) {
	case float64:
		return decimal.NewFromFloat(a).Round(core.AmountScale)
	case string:
		if d, err := core.ParseAmount(a); err == nil {
			return d
		}
	}
	return decimal.Zero
}
