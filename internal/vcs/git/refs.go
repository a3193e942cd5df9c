package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/SilentByte/doublegit/internal/vcs"
)

// ResolveRef resolves a ref name to its commit hash. The commit must
// actually exist in the object store: a syntactically valid hash whose
// object has been garbage collected does not resolve. The "^{commit}"
// suffix forces that existence check; a bare --verify would accept any
// well-formed hash.
func (r *Repository) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := vcs.ExecContext(ctx, DefaultTimeout, r.path,
		"git", "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, vcs.ErrRefNotFound)
	}
	return strings.TrimSpace(string(out)), nil
}

// ForceBranch creates or moves branch name to point at sha. "git branch -f"
// is idempotent: re-running it with the same sha changes nothing.
func (r *Repository) ForceBranch(ctx context.Context, name, sha string) error {
	_, err := vcs.ExecContext(ctx, DefaultTimeout, r.path, "git", "branch", "-f", name, sha)
	if err != nil {
		return fmt.Errorf("create branch %s at %s: %w", name, sha, err)
	}
	return nil
}

// MergedBranches returns the local branches whose tips are reachable
// from target, target's own branch included. This is git's native
// ancestry query ("git branch --merged").
func (r *Repository) MergedBranches(ctx context.Context, target string) ([]string, error) {
	lines, err := vcs.ExecSplit(ctx, DefaultTimeout, r.path, "git", "branch", "--merged", target)
	if err != nil {
		return nil, fmt.Errorf("list branches merged into %s: %w", target, err)
	}

	branches := make([]string, 0, len(lines))
	for _, line := range lines {
		// "git branch" marks the checked-out branch with "* ".
		branches = append(branches, strings.TrimSpace(strings.TrimPrefix(line, "* ")))
	}
	return branches, nil
}

// DeleteBranch deletes the named local branch regardless of merge state.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	_, err := vcs.ExecContext(ctx, DefaultTimeout, r.path, "git", "branch", "-D", name)
	if err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}

// BranchesContaining returns the local branches whose ancestry
// includes sha ("git branch --contains").
func (r *Repository) BranchesContaining(ctx context.Context, sha string) ([]string, error) {
	lines, err := vcs.ExecSplit(ctx, DefaultTimeout, r.path, "git", "branch", "--contains", sha)
	if err != nil {
		return nil, fmt.Errorf("list branches containing %s: %w", sha, err)
	}

	branches := make([]string, 0, len(lines))
	for _, line := range lines {
		branches = append(branches, strings.TrimSpace(strings.TrimPrefix(line, "* ")))
	}
	return branches, nil
}

// ListBranches returns all local branch names.
func (r *Repository) ListBranches(ctx context.Context) ([]string, error) {
	lines, err := vcs.ExecSplit(ctx, DefaultTimeout, r.path,
		"git", "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return lines, nil
}
