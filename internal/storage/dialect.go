package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tracker/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds the per-engine differences: how a DSN is opened, how
// placeholders are written and how the owner column is detected and added.
type dialect struct {
	name         string
	sqlDriver    string
	ownerCheck   string
	ownerAddStmt string
	positional   bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:         DriverSQLite,
		sqlDriver:    "sqlite",
		ownerCheck:   `SELECT COUNT(*) FROM pragma_table_info('logs') WHERE name = 'user_email'`,
		ownerAddStmt: `ALTER TABLE logs ADD COLUMN user_email TEXT DEFAULT ` + quoteLiteral(core.PlaceholderOwner),
	},
	DriverPostgres: {
		name:      DriverPostgres,
		sqlDriver: "postgres",
		ownerCheck: `SELECT COUNT(*) FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = 'logs' AND column_name = 'user_email'`,
		ownerAddStmt: `ALTER TABLE logs ADD COLUMN user_email VARCHAR(255) DEFAULT ` + quoteLiteral(core.PlaceholderOwner),
		positional:   true,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		return dialects[DriverSQLite], nil
	case DriverPostgres, "postgresql":
		return dialects[DriverPostgres], nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// open returns an unpinged pool for dsn. For SQLite the parent directory is
// created and a busy timeout is applied so concurrent writers wait instead
// of failing.
func (d dialect) open(dsn string) (*sql.DB, error) {
	if d.name == DriverSQLite {
		path := dsn
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		path = strings.TrimPrefix(path, "file:")
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "busy_timeout") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)"
		}
	}
	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}
	return db, nil
}

// rebind rewrites ? placeholders as $1..$n for engines that need positional
// parameters. Queries in this package never contain a literal '?'.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
