package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// Tx is one reconciliation cycle's write transaction. All record
// mutations of a cycle go through a single Tx so that a crash or a
// fatal error mid-cycle leaves the ledger untouched: either the whole
// cycle commits or none of it does.
type Tx struct {
	tx   *sql.Tx
	done bool

	// Warnings collects non-fatal anomalies, e.g. closing a ref the
	// ledger never saw open.
	Warnings []string
}

// Begin starts a cycle transaction.
func (l *Ledger) Begin() (*Tx, error) {
	tx, err := l.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin ledger transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// CloseRecord closes the most recent open record for (remote, name),
// stamping it with at. When no open record exists this is recorded as a
// warning, not an error: a prune for a ref the ledger never tracked is
// odd but harmless.
func (t *Tx) CloseRecord(remote, name string, at time.Time) error {
	n, err := t.closeOpen(remote, name, at)
	if err != nil {
		return err
	}
	if n == 0 {
		t.Warnings = append(t.Warnings,
			fmt.Sprintf("no open record for %s/%s to close", remote, name))
	}
	return nil
}

// OpenRecord records that (remote, name) points at sha as of at. Any
// still-open record for the key is closed first, so at most one record
// per key ever has a NULL to_date. A missing open record is normal here
// (the ref is brand new) and raises no warning.
func (t *Tx) OpenRecord(remote, name, sha string, at time.Time) error {
	if _, err := t.closeOpen(remote, name, at); err != nil {
		return err
	}

	_, err := t.tx.Exec(`
		INSERT INTO refs(remote, name, from_date, to_date, sha)
		VALUES(?, ?, ?, NULL, ?);`,
		remote, name, formatTime(at), sha,
	)
	if err != nil {
		return fmt.Errorf("open record %s/%s at %s: %w", remote, name, sha, err)
	}
	return nil
}

// closeOpen stamps to_date on the newest open record for the key and
// reports how many rows that touched (0 or 1).
func (t *Tx) closeOpen(remote, name string, at time.Time) (int64, error) {
	res, err := t.tx.Exec(`
		UPDATE refs SET to_date = ?
		WHERE rowid = (
			SELECT rowid FROM refs
			WHERE remote = ? AND name = ? AND to_date IS NULL
			ORDER BY from_date DESC
			LIMIT 1
		);`,
		formatTime(at), remote, name,
	)
	if err != nil {
		return 0, fmt.Errorf("close record %s/%s: %w", remote, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close record %s/%s: %w", remote, name, err)
	}
	return n, nil
}

// Commit commits the cycle's ledger writes.
func (t *Tx) Commit() error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// Rollback discards the cycle's ledger writes. After Commit it is a
// no-op, so "defer tx.Rollback()" is the usual pattern.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
