package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderOwner owns every row written without an authenticated identity,
// and every legacy row that predates the owner column.
const PlaceholderOwner = "local_test_user@example.com"

// DateLayout is the canonical on-disk and on-wire form of a Date.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day without time of day, held at UTC midnight.
	Date struct {
		time.Time
	}

	// LogEntry is one persisted expense row.
	LogEntry struct {
		ID          int64           `json:"id"`
		UserEmail   string          `json:"user_email"`
		LogDate     Date            `json:"log_date"`
		Activity    string          `json:"activity"`
		Amount      decimal.Decimal `json:"amount"`
		Entity      string          `json:"entity"`
		PaymentMode string          `json:"payment_mode"`
		Category    Category        `json:"category"`
		Remark      string          `json:"remark"`
	}

	// DraftEntry carries the user-editable fields of a LogEntry. It is what
	// extraction produces, what the confirmation form submits, and what an
	// update writes.
	DraftEntry struct {
		LogDate     Date
		Activity    string
		Amount      decimal.Decimal
		Entity      string
		PaymentMode string
		Category    Category
		Remark      string
	}

	// MutationResult reports whether an owner-scoped update or delete touched a row.
	MutationResult int
)

const (
	MutationApplied MutationResult = iota + 1
	MutationNotFoundOrNotOwned
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyOwner    = errors.New("empty owner")
)

func (r MutationResult) String() string {
	switch r {
	case MutationApplied:
		return "applied"
	case MutationNotFoundOrNotOwned:
		return "not_found_or_not_owned"
	default:
		return "unknown"
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day from t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD, optionally followed by a time part as some
// drivers return it.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseFormDate accepts exactly YYYY-MM-DD, surrounding spaces aside.
func ParseFormDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DraftEntry) Validate() error {
	if d.LogDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Entry binds the draft to an owner. The ID is assigned by the store.
func (d DraftEntry) Entry(owner string) LogEntry {
	return LogEntry{
		UserEmail:   owner,
		LogDate:     d.LogDate,
		Activity:    d.Activity,
		Amount:      d.Amount,
		Entity:      d.Entity,
		PaymentMode: d.PaymentMode,
		Category:    d.Category,
		Remark:      d.Remark,
	}
}

// Draft returns the editable fields of the entry.
func (e LogEntry) Draft() DraftEntry {
	return DraftEntry{
		LogDate:     e.LogDate,
		Activity:    e.Activity,
		Amount:      e.Amount,
		Entity:      e.Entity,
		PaymentMode: e.PaymentMode,
		Category:    e.Category,
		Remark:      e.Remark,
	}
}

// Apply overwrites the editable fields of the entry, keeping ID and owner.
func (e LogEntry) Apply(d DraftEntry) LogEntry {
	updated := d.Entry(e.UserEmail)
	updated.ID = e.ID
	return updated
}
