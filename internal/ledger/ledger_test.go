package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "gitarchive.sqlite3"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// clock returns minute n of a fixed hour, mirroring how cycles stamp
// all records of one fetch with one instant.
func clock(n int) time.Time {
	return time.Date(2019, 3, 16, 17, n, 0, 0, time.UTC)
}

func mustRun(t *testing.T, l *Ledger, fn func(tx *Tx) error) *Tx {
	t.Helper()
	tx, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := fn(tx); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return tx
}

// countOpen returns how many open records exist for a key.
func countOpen(t *testing.T, l *Ledger, remote, name string) int {
	t.Helper()
	var n int
	err := l.conn.QueryRow(`
		SELECT COUNT(*) FROM refs
		WHERE remote = ? AND name = ? AND to_date IS NULL;`,
		remote, name).Scan(&n)
	if err != nil {
		t.Fatalf("count open records: %v", err)
	}
	return n
}

func TestOpen_CreatesSchema(t *testing.T) {
	l := testLedger(t)

	var n int
	err := l.conn.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = 'refs';`).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 1 {
		t.Error("refs table does not exist")
	}
}

func TestOpen_ExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitarchive.sqlite3")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c1", clock(1))
	})
	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopening must keep existing records and not recreate the schema.
	l, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer l.Close()

	targets, err := l.CurrentTargets()
	if err != nil {
		t.Fatalf("CurrentTargets() failed: %v", err)
	}
	if targets[Key{"origin", "main"}] != "c1" {
		t.Errorf("targets = %v, want origin/main -> c1", targets)
	}
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		tracking string
		remote   string
		name     string
		wantErr  bool
	}{
		{tracking: "origin/main", remote: "origin", name: "main"},
		// The first slash splits; the rest of the name keeps its slashes.
		{tracking: "origin/feature/deep/branch", remote: "origin", name: "feature/deep/branch"},
		{tracking: "upstream/main", remote: "upstream", name: "main"},
		{tracking: "noslash", wantErr: true},
		{tracking: "/leading", wantErr: true},
		{tracking: "trailing/", wantErr: true},
	}

	for _, tt := range tests {
		remote, name, err := SplitRef(tt.tracking)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SplitRef(%q) succeeded, want error", tt.tracking)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitRef(%q) failed: %v", tt.tracking, err)
			continue
		}
		if remote != tt.remote || name != tt.name {
			t.Errorf("SplitRef(%q) = (%q, %q), want (%q, %q)",
				tt.tracking, remote, name, tt.remote, tt.name)
		}
	}
}

// TestTx_AtMostOneOpenRecord drives a sequence of opens and closes and
// checks the principal invariant after every step: at most one open
// record per key.
func TestTx_AtMostOneOpenRecord(t *testing.T) {
	l := testLedger(t)

	steps := []func(tx *Tx) error{
		func(tx *Tx) error { return tx.OpenRecord("origin", "main", "c1", clock(1)) },
		func(tx *Tx) error { return tx.OpenRecord("origin", "main", "c2", clock(2)) },
		func(tx *Tx) error { return tx.CloseRecord("origin", "main", clock(3)) },
		func(tx *Tx) error { return tx.CloseRecord("origin", "main", clock(4)) },
		func(tx *Tx) error { return tx.OpenRecord("origin", "main", "c3", clock(5)) },
	}

	for i, step := range steps {
		mustRun(t, l, step)
		if n := countOpen(t, l, "origin", "main"); n > 1 {
			t.Fatalf("after step %d: %d open records, want at most 1", i, n)
		}
	}
}

func TestTx_OpenClosesPrevious(t *testing.T) {
	l := testLedger(t)

	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c1", clock(1))
	})
	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c2", clock(2))
	})

	records, err := l.History("origin", "main")
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}

	t2 := clock(2)
	want := []Record{
		{Remote: "origin", Name: "main", From: clock(1), To: &t2, SHA: "c1"},
		{Remote: "origin", Name: "main", From: clock(2), To: nil, SHA: "c2"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

// TestHistory_TimestampRoundTrip checks that timestamps written as
// DATETIME text read back as the exact same UTC instants, through the
// driver's own time decoding.
func TestHistory_TimestampRoundTrip(t *testing.T) {
	l := testLedger(t)

	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c1", clock(1))
	})
	mustRun(t, l, func(tx *Tx) error {
		return tx.CloseRecord("origin", "main", clock(2))
	})

	records, err := l.History("origin", "main")
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	rec := records[0]
	if !rec.From.Equal(clock(1)) || rec.From.Location() != time.UTC {
		t.Errorf("From = %v, want %v (UTC)", rec.From, clock(1))
	}
	if rec.To == nil {
		t.Fatal("To = nil, want closed record")
	}
	if !rec.To.Equal(clock(2)) || rec.To.Location() != time.UTC {
		t.Errorf("To = %v, want %v (UTC)", *rec.To, clock(2))
	}
}

// TestTx_CloseWithoutOpen checks the contract that closing a ref the
// ledger never saw open warns instead of failing.
func TestTx_CloseWithoutOpen(t *testing.T) {
	l := testLedger(t)

	tx := mustRun(t, l, func(tx *Tx) error {
		return tx.CloseRecord("origin", "ghost", clock(1))
	})

	if len(tx.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", tx.Warnings)
	}
}

// TestTx_OpenNewRefNoWarning checks that opening a brand-new ref does
// not warn about the (expected) missing open record.
func TestTx_OpenNewRefNoWarning(t *testing.T) {
	l := testLedger(t)

	tx := mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "fresh", "c1", clock(1))
	})

	if len(tx.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", tx.Warnings)
	}
}

// TestTx_Rollback checks that a rolled-back cycle leaves no trace.
func TestTx_Rollback(t *testing.T) {
	l := testLedger(t)

	tx, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := tx.OpenRecord("origin", "main", "c1", clock(1)); err != nil {
		t.Fatalf("OpenRecord() failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	records, err := l.AllHistory()
	if err != nil {
		t.Fatalf("AllHistory() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want none after rollback", records)
	}
}

// TestTx_RollbackAfterCommit checks the deferred-rollback pattern.
func TestTx_RollbackAfterCommit(t *testing.T) {
	l := testLedger(t)

	tx, err := l.Begin()
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := tx.OpenRecord("origin", "main", "c1", clock(1)); err != nil {
		t.Fatalf("OpenRecord() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback() after Commit = %v, want nil", err)
	}

	if n := countOpen(t, l, "origin", "main"); n != 1 {
		t.Errorf("open records = %d, want 1 (commit must stick)", n)
	}
}

func TestCurrentTargets(t *testing.T) {
	l := testLedger(t)

	mustRun(t, l, func(tx *Tx) error {
		if err := tx.OpenRecord("origin", "main", "c1", clock(1)); err != nil {
			return err
		}
		if err := tx.OpenRecord("origin", "devel", "c2", clock(1)); err != nil {
			return err
		}
		return tx.OpenRecord("upstream", "main", "c3", clock(1))
	})
	mustRun(t, l, func(tx *Tx) error {
		return tx.CloseRecord("origin", "devel", clock(2))
	})

	targets, err := l.CurrentTargets()
	if err != nil {
		t.Fatalf("CurrentTargets() failed: %v", err)
	}

	want := map[Key]string{
		{Remote: "origin", Name: "main"}:   "c1",
		{Remote: "upstream", Name: "main"}: "c3",
	}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestHistory_ClosedRecordsImmutable(t *testing.T) {
	l := testLedger(t)

	// Ref moves c1 -> c2 -> back to c1. The closed c1 interval must
	// survive untouched; the return creates a NEW interval.
	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c1", clock(1))
	})
	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c2", clock(2))
	})
	mustRun(t, l, func(tx *Tx) error {
		return tx.OpenRecord("origin", "main", "c1", clock(3))
	})

	records, err := l.History("origin", "main")
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}

	t2, t3 := clock(2), clock(3)
	want := []Record{
		{Remote: "origin", Name: "main", From: clock(1), To: &t2, SHA: "c1"},
		{Remote: "origin", Name: "main", From: clock(2), To: &t3, SHA: "c2"},
		{Remote: "origin", Name: "main", From: clock(3), To: nil, SHA: "c1"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}
