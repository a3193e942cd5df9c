package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is one historical interval: ref (Remote, Name) pointed at SHA
// from From until To. A nil To means the interval is still open, i.e.
// this is what the ledger believes the ref points at right now.
type Record struct {
	Remote string     `yaml:"remote"`
	Name   string     `yaml:"name"`
	From   time.Time  `yaml:"from"`
	To     *time.Time `yaml:"to"`
	SHA    string     `yaml:"sha"`
}

// Key identifies a tracked ref.
type Key struct {
	Remote string
	Name   string
}

// String returns the tracking-name form of the key.
func (k Key) String() string {
	return k.Remote + "/" + k.Name
}

// CurrentTargets returns the sha of every open record, keyed by ref.
// This is the ledger's view of "what exists right now".
func (l *Ledger) CurrentTargets() (map[Key]string, error) {
	rows, err := l.conn.Query(`
		SELECT remote, name, sha FROM refs
		WHERE to_date IS NULL
		ORDER BY remote, name;`)
	if err != nil {
		return nil, fmt.Errorf("query current targets: %w", err)
	}
	defer rows.Close()

	targets := make(map[Key]string)
	for rows.Next() {
		var k Key
		var sha string
		if err := rows.Scan(&k.Remote, &k.Name, &sha); err != nil {
			return nil, fmt.Errorf("scan current target: %w", err)
		}
		targets[k] = sha
	}
	return targets, rows.Err()
}

// History returns all intervals for one ref, oldest first.
func (l *Ledger) History(remote, name string) ([]Record, error) {
	return l.queryRecords(`
		SELECT remote, name, from_date, to_date, sha FROM refs
		WHERE remote = ? AND name = ?
		ORDER BY from_date, name;`, remote, name)
}

// AllHistory returns every interval in the ledger, ordered by opening
// time then ref name.
func (l *Ledger) AllHistory() ([]Record, error) {
	return l.queryRecords(`
		SELECT remote, name, from_date, to_date, sha FROM refs
		ORDER BY from_date, remote, name;`)
}

func (l *Ledger) queryRecords(query string, args ...any) ([]Record, error) {
	rows, err := l.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var to sql.NullTime
		// The driver decodes declared-DATETIME columns into time.Time
		// itself; scanning through strings would re-render them in a
		// different layout.
		if err := rows.Scan(&rec.Remote, &rec.Name, &rec.From, &to, &rec.SHA); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}

		rec.From = rec.From.UTC()
		if to.Valid {
			closed := to.Time.UTC()
			rec.To = &closed
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}
