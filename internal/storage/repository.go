package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

var (
	ErrNotFound          = errors.New("entry not found")
	ErrNoDSN             = errors.New("no database connection string configured")
	ErrUnreachable       = errors.New("no database candidate reachable")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrDirtySchema       = errors.New("schema migration left dirty")
)

// Config selects the engine and the connection candidates tried at startup.
type Config struct {
	Driver       string
	DSN          string
	FallbackDSNs []string
	MaxOpenConns int
}

func (c Config) candidates() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, dsn := range append([]string{c.DSN}, c.FallbackDSNs...) {
		dsn = strings.TrimSpace(dsn)
		if dsn == "" {
			continue
		}
		if _, ok := seen[dsn]; ok {
			continue
		}
		seen[dsn] = struct{}{}
		out = append(out, dsn)
	}
	return out
}

// Store persists LogEntry rows in the logs table. Every read and mutation is
// scoped by owner email.
type Store struct {
	db      *sql.DB
	dialect dialect
	dsn     string
}

// Open resolves the connection once: the primary DSN is tried first, then
// each fallback in order, and the first candidate that answers a ping is
// kept for the life of the process.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	candidates := cfg.candidates()
	if len(candidates) == 0 {
		return nil, ErrNoDSN
	}

	var errs []error
	for i, dsn := range candidates {
		db, err := d.open(dsn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			slog.WarnContext(ctx, "Database candidate unreachable",
				"driver", d.name, "candidate", i, "error", err)
			errs = append(errs, fmt.Errorf("candidate %d: %w", i, err))
			continue
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(max(1, cfg.MaxOpenConns/2))
		}
		if i > 0 {
			slog.WarnContext(ctx, "Using fallback database candidate", "driver", d.name, "candidate", i)
		}
		slog.InfoContext(ctx, "Database connected", "driver", d.name)
		return &Store{db: db, dialect: d, dsn: dsn}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnreachable, errors.Join(errs...))
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the engine name in use.
func (s *Store) Driver() string {
	return s.dialect.name
}

const selectColumns = `id, user_email, log_date, activity, amount, entity, payment_mode, category, remark`

// Insert writes a new row and returns its assigned id.
func (s *Store) Insert(ctx context.Context, e core.LogEntry) (int64, error) {
	if strings.TrimSpace(e.UserEmail) == "" {
		return 0, core.ErrEmptyOwner
	}
	q := s.dialect.rebind(`INSERT INTO logs (user_email, log_date, activity, amount, entity, payment_mode, category, remark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		e.UserEmail, e.LogDate, e.Activity, e.Amount.Round(core.AmountScale),
		e.Entity, e.PaymentMode, e.Category, e.Remark,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"driver", s.dialect.name,
		"category", e.Category.String(),
		"log_date", e.LogDate.String())
	return id, nil
}

// FetchByUser returns every row owned by email in insertion order.
func (s *Store) FetchByUser(ctx context.Context, email string) ([]core.LogEntry, error) {
	q := s.dialect.rebind(`SELECT ` + selectColumns + ` FROM logs WHERE user_email = ? ORDER BY id`)
	rows, err := s.db.QueryContext(ctx, q, email)
	if err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	defer rows.Close()

	var out []core.LogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Get returns one row owned by email, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64, email string) (core.LogEntry, error) {
	q := s.dialect.rebind(`SELECT ` + selectColumns + ` FROM logs WHERE id = ? AND user_email = ?`)
	e, err := scanEntry(s.db.QueryRowContext(ctx, q, id, email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.LogEntry{}, ErrNotFound
	}
	if err != nil {
		return core.LogEntry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// Update rewrites the editable fields of a row owned by email. A row that
// does not exist or belongs to someone else is left alone and reported as
// MutationNotFoundOrNotOwned.
func (s *Store) Update(ctx context.Context, id int64, email string, d core.DraftEntry) (core.MutationResult, error) {
	q := s.dialect.rebind(`UPDATE logs
		SET log_date = ?, activity = ?, amount = ?, category = ?, entity = ?, payment_mode = ?, remark = ?
		WHERE id = ? AND user_email = ?`)
	res, err := s.db.ExecContext(ctx, q,
		d.LogDate, d.Activity, d.Amount.Round(core.AmountScale), d.Category,
		d.Entity, d.PaymentMode, d.Remark,
		id, email,
	)
	if err != nil {
		return 0, fmt.Errorf("update entry %d: %w", id, err)
	}
	return s.mutationResult(ctx, res, "update", id)
}

// Delete removes a row owned by email.
func (s *Store) Delete(ctx context.Context, id int64, email string) (core.MutationResult, error) {
	q := s.dialect.rebind(`DELETE FROM logs WHERE id = ? AND user_email = ?`)
	res, err := s.db.ExecContext(ctx, q, id, email)
	if err != nil {
		return 0, fmt.Errorf("delete entry %d: %w", id, err)
	}
	return s.mutationResult(ctx, res, "delete", id)
}

func (s *Store) mutationResult(ctx context.Context, res sql.Result, op string, id int64) (core.MutationResult, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s entry %d: rows affected: %w", op, id, err)
	}
	if n == 0 {
		slog.WarnContext(ctx, "Entry not found or not owned", "operation", op, "id", id)
		return core.MutationNotFoundOrNotOwned, nil
	}
	slog.InfoContext(ctx, "Entry mutated", "operation", op, "id", id)
	return core.MutationApplied, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (core.LogEntry, error) {
	var (
		e                                     core.LogEntry
		owner, activity, entity, mode, remark sql.NullString
		amount                                decimal.NullDecimal
	)
	if err := r.Scan(&e.ID, &owner, &e.LogDate, &activity, &amount, &entity, &mode, &e.Category, &remark); err != nil {
		return core.LogEntry{}, err
	}
	e.UserEmail = owner.String
	e.Activity = activity.String
	e.Entity = entity.String
	e.PaymentMode = mode.String
	e.Remark = remark.String
	if amount.Valid {
		e.Amount = amount.Decimal.Round(core.AmountScale)
	}
	return e, nil
}
