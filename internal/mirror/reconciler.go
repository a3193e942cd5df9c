// Package mirror drives one fetch/reconcile cycle end to end: sync the
// remote, classify what moved, update the ledger, anchor every new
// target, prune superseded anchors, commit.
//
// The cycle is a saga around a single ledger transaction. The ledger
// write is staged first, the anchor side effects run against the
// repository, and only then does the transaction commit. A fatal error
// anywhere rolls back the ledger and leaves any anchors already created
// in place: over-retention, never under-retention, is the fail-safe
// direction.
//
// Cycles are not designed to run concurrently against the same
// repository/ledger pair; the caller serializes them.
package mirror

import (
	"context"
	"log"
	"time"

	"github.com/SilentByte/doublegit/internal/anchor"
	"github.com/SilentByte/doublegit/internal/fetch"
	"github.com/SilentByte/doublegit/internal/ledger"
	"github.com/SilentByte/doublegit/internal/vcs"
)

// State names the phase a cycle is in. Reported for diagnostics; a
// failed cycle's report carries the state it failed in.
type State string

const (
	StateIdle           State = "idle"
	StateFetching       State = "fetching"
	StateParsing        State = "parsing"
	StateUpdatingLedger State = "updating-ledger"
	StateAnchoring      State = "anchoring"
	StatePruning        State = "pruning"
	StateCommitted      State = "committed"
	StateFailed         State = "failed"
)

// Report summarizes one completed (or failed) cycle.
type Report struct {
	// State is StateCommitted on success, StateFailed otherwise.
	State State

	// FailedIn is the phase a failed cycle was in. Empty on success.
	FailedIn State

	New     []string
	Changed []string
	Removed []string

	// Anchored lists the distinct commit hashes anchored this cycle.
	Anchored []string

	// Pruned lists the branches retired as redundant.
	Pruned []string

	// Warnings carries non-fatal anomalies (ledger close misses,
	// skipped prunes).
	Warnings []string
}

// Reconciler runs reconciliation cycles. All collaborators are
// injected; it holds no ambient state.
type Reconciler struct {
	repo    vcs.Repository
	ledger  *ledger.Ledger
	anchors *anchor.Manager
	logger  *log.Logger
	now     func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the cycle timestamp source. Tests pin time with
// this; production uses time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// New returns a Reconciler over the given repository, ledger and anchor
// manager. If logger is nil, progress is not logged.
func New(repo vcs.Repository, led *ledger.Ledger, anchors *anchor.Manager, logger *log.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:    repo,
		ledger:  led,
		anchors: anchors,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one reconciliation cycle. On error the returned report
// still describes how far the cycle got; the ledger is guaranteed to be
// exactly as it was before the cycle started.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{State: StateIdle}

	fail := func(phase State, err error) (*Report, error) {
		report.State = StateFailed
		report.FailedIn = phase
		return report, err
	}

	// One timestamp per cycle: every interval closed and opened by the
	// same fetch carries the same instant.
	at := r.now()

	report.State = StateFetching
	r.logf("fetching %s", r.repo.Path())
	out, err := r.repo.Sync(ctx)
	if err != nil {
		return fail(StateFetching, err)
	}

	report.State = StateParsing
	changes, err := fetch.Parse(out, r.logger)
	if err != nil {
		return fail(StateParsing, err)
	}
	report.New = changes.New
	report.Changed = changes.Changed
	report.Removed = changes.Removed

	report.State = StateUpdatingLedger
	tx, err := r.ledger.Begin()
	if err != nil {
		return fail(StateUpdatingLedger, err)
	}
	defer tx.Rollback()

	// Close intervals for everything that disappeared or moved.
	for _, ref := range concat(changes.Removed, changes.Changed) {
		remote, name, err := ledger.SplitRef(ref)
		if err != nil {
			return fail(StateUpdatingLedger, err)
		}
		if err := tx.CloseRecord(remote, name, at); err != nil {
			return fail(StateUpdatingLedger, err)
		}
	}

	// Open intervals for everything that moved or appeared, resolving
	// each ref to the commit it points at right now.
	var targets []string
	seen := make(map[string]bool)
	for _, ref := range concat(changes.Changed, changes.New) {
		remote, name, err := ledger.SplitRef(ref)
		if err != nil {
			return fail(StateUpdatingLedger, err)
		}

		sha, err := r.repo.ResolveRef(ctx, ref)
		if err != nil {
			return fail(StateUpdatingLedger, &ResolutionError{Ref: ref, Err: err})
		}

		if err := tx.OpenRecord(remote, name, sha, at); err != nil {
			return fail(StateUpdatingLedger, err)
		}
		if !seen[sha] {
			seen[sha] = true
			targets = append(targets, sha)
		}
	}

	// Anchor every target before pruning anything. A commit that is
	// simultaneously one ref's old target and another's new target must
	// have its replacement anchor in place before deletions start.
	report.State = StateAnchoring
	for _, sha := range targets {
		r.logf("anchoring %s", sha)
		if err := r.anchors.Ensure(ctx, sha); err != nil {
			return fail(StateAnchoring, &AnchorError{SHA: sha, Err: err})
		}
	}
	report.Anchored = targets

	report.State = StatePruning
	for _, sha := range targets {
		pruned, err := r.anchors.PruneRedundant(ctx, sha)
		if err != nil {
			// Over-retention is safe; a later cycle retries.
			r.logf("warning: prune for %s failed: %v", sha, err)
			report.Warnings = append(report.Warnings,
				"prune for "+sha+" failed: "+err.Error())
			continue
		}
		for _, branch := range pruned {
			r.logf("pruned %s", branch)
		}
		report.Pruned = append(report.Pruned, pruned...)
	}

	// The ledger transaction commits only after anchoring has been
	// attempted for every target, so a committed ledger never claims a
	// commit no anchor was at least created for.
	if err := tx.Commit(); err != nil {
		return fail(StatePruning, err)
	}

	report.State = StateCommitted
	report.Warnings = append(report.Warnings, tx.Warnings...)
	for _, w := range tx.Warnings {
		r.logf("warning: %s", w)
	}
	return report, nil
}

func (r *Reconciler) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
