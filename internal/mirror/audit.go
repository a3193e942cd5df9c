package mirror

import (
	"context"

	"github.com/SilentByte/doublegit/internal/ledger"
	"github.com/SilentByte/doublegit/internal/vcs"
)

// Gap is one open ledger record whose commit is no longer protected.
type Gap struct {
	Ref    ledger.Key
	SHA    string
	Reason string
}

// AuditResult is the outcome of a retention-safety audit.
type AuditResult struct {
	// Checked is the number of open records examined.
	Checked int

	// Gaps lists records whose target is unresolvable or unreachable
	// from every local branch. Empty means the retention invariant
	// holds: everything the ledger claims to exist right now is still
	// pinned against garbage collection.
	Gaps []Gap
}

// OK reports whether the audit found no gaps.
func (a *AuditResult) OK() bool {
	return len(a.Gaps) == 0
}

// Audit verifies the retention-safety property: for every commit the
// ledger currently claims a ref points at, the commit still resolves
// and some local branch (anchor or otherwise) keeps it reachable.
func Audit(ctx context.Context, repo vcs.Repository, led *ledger.Ledger) (*AuditResult, error) {
	targets, err := led.CurrentTargets()
	if err != nil {
		return nil, err
	}

	result := &AuditResult{}
	for key, sha := range targets {
		result.Checked++

		if _, err := repo.ResolveRef(ctx, sha); err != nil {
			result.Gaps = append(result.Gaps, Gap{
				Ref:    key,
				SHA:    sha,
				Reason: "commit no longer resolves",
			})
			continue
		}

		holders, err := repo.BranchesContaining(ctx, sha)
		if err != nil {
			return nil, err
		}
		if len(holders) == 0 {
			result.Gaps = append(result.Gaps, Gap{
				Ref:    key,
				SHA:    sha,
				Reason: "no branch keeps the commit reachable",
			})
		}
	}

	return result, nil
}
