// Package ledger stores the append-only history of observed ref
// positions in a SQLite database colocated with the repository.
//
// Each row is one interval: ref (remote, name) pointed at sha from
// from_date until to_date, with a NULL to_date meaning "still current".
// Rows are closed, never rewritten or deleted, so the ledger remains a
// provable record of what every ref pointed to at every point in time.
//
// The schema is created on first use:
//
//	CREATE TABLE refs(
//	    remote    TEXT NOT NULL,
//	    name      TEXT NOT NULL,
//	    from_date DATETIME NOT NULL,
//	    to_date   DATETIME NULL,
//	    sha       TEXT NOT NULL
//	);
//
// The layout matches the original gitarchive.sqlite3 file format, so
// ledgers written by earlier versions keep working.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DefaultFilename is the ledger database file created next to the
// repository contents.
const DefaultFilename = "gitarchive.sqlite3"

// TimeFormat is the timestamp layout stored in from_date/to_date.
// Matches SQLite's DATETIME() text output; timestamps are UTC.
const TimeFormat = "2006-01-02 15:04:05"

// Ledger wraps the SQLite connection holding the refs table.
type Ledger struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the ledger database at path and ensures the
// schema exists. The caller must Close() when done.
func Open(path string) (*Ledger, error) {
	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	// One cycle at a time holds the write transaction; a single
	// connection keeps transaction state unambiguous.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	l := &Ledger{conn: conn, path: path}
	if err := l.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}

// initSchema creates the refs table if absent. Idempotent.
func (l *Ledger) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS refs(
		remote    TEXT NOT NULL,
		name      TEXT NOT NULL,
		from_date DATETIME NOT NULL,
		to_date   DATETIME NULL,
		sha       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_refs_key ON refs(remote, name, from_date);
	`
	if _, err := l.conn.Exec(schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// SplitRef splits a tracking name into (remote, name) on the FIRST
// slash: "origin/feature/x" -> ("origin", "feature/x"). Historical
// ledger keys depend on this exact rule.
func SplitRef(tracking string) (remote, name string, err error) {
	remote, name, ok := strings.Cut(tracking, "/")
	if !ok || remote == "" || name == "" {
		return "", "", fmt.Errorf("malformed tracking name %q: want remote/name", tracking)
	}
	return remote, name, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
