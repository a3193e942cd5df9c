// Package anchor manages retention anchors: local branches whose only
// purpose is to keep ledger-referenced commits reachable, and therefore
// exempt from git's garbage collection.
//
// The protocol is two-phase within a cycle. Every new target gets its
// anchor first; only then are superseded anchors pruned. An anchor must
// exist for every still-referenced commit before any deletion runs,
// because anchors are the only thing standing between recorded history
// and the garbage collector.
package anchor

import (
	"context"
	"fmt"
	"log"

	"github.com/SilentByte/doublegit/internal/vcs"
)

// DefaultPrefix is the branch-name prefix of an anchor. Mirrors written
// by earlier versions use the same prefix, so their anchors are
// recognized and managed.
const DefaultPrefix = "keep-"

// Manager creates and retires retention anchors in one repository.
type Manager struct {
	repo   vcs.Repository
	prefix string
	logger *log.Logger
}

// New returns a Manager for repo. An empty prefix selects
// DefaultPrefix. If logger is nil, prune warnings are not logged.
func New(repo vcs.Repository, prefix string, logger *log.Logger) *Manager {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{repo: repo, prefix: prefix, logger: logger}
}

// Label derives the anchor branch name for a commit hash. Deterministic,
// so creation is idempotent and two targets never collide.
func (m *Manager) Label(sha string) string {
	return m.prefix + sha
}

// Ensure creates the anchor for sha, pointing at sha. Re-creating an
// existing anchor is a no-op. A failure here is fatal for the cycle:
// a stale anchor is safe, an unanchored commit is not.
func (m *Manager) Ensure(ctx context.Context, sha string) error {
	if err := m.repo.ForceBranch(ctx, m.Label(sha), sha); err != nil {
		return fmt.Errorf("anchor %s: %w", sha, err)
	}
	return nil
}

// PruneRedundant deletes every branch fully contained in sha's
// ancestry, except sha's own anchor. Containment is git's native
// "merged into" reachability query. Individual delete failures are
// logged and skipped; over-retention is the safe failure mode, and a
// later cycle will retry.
//
// Returns the names of the branches actually deleted.
func (m *Manager) PruneRedundant(ctx context.Context, sha string) ([]string, error) {
	keeper := m.Label(sha)

	merged, err := m.repo.MergedBranches(ctx, sha)
	if err != nil {
		return nil, fmt.Errorf("prune for %s: %w", sha, err)
	}

	var pruned []string
	for _, branch := range merged {
		if branch == keeper {
			continue
		}
		if err := m.repo.DeleteBranch(ctx, branch); err != nil {
			if m.logger != nil {
				m.logger.Printf("warning: could not prune %s: %v", branch, err)
			}
			continue
		}
		pruned = append(pruned, branch)
	}
	return pruned, nil
}

// IsAnchor reports whether a branch name carries the anchor prefix.
func (m *Manager) IsAnchor(name string) bool {
	return len(name) > len(m.prefix) && name[:len(m.prefix)] == m.prefix
}

// Target returns the commit hash an anchor name was derived from, and
// whether name is an anchor at all.
func (m *Manager) Target(name string) (string, bool) {
	if !m.IsAnchor(name) {
		return "", false
	}
	return name[len(m.prefix):], true
}
