// Package vcs defines the interface doublegit requires from a version
// control backend.
//
// The backend is treated as a black-box process: it accepts commands and
// produces defined text output or ref side effects. doublegit never walks
// the commit graph itself; ancestry questions are delegated to the
// backend's own reachability query (MergedBranches).
//
// # Usage
//
//	repo, err := git.Open("/srv/mirrors/project.git")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := repo.Sync(ctx)
//
// # Implementations
//
//   - internal/vcs/git: bare-repository git implementation
package vcs

import "context"

// Repository is the set of version-control operations the reconciliation
// cycle depends on. All calls are synchronous and block until the
// underlying process exits.
type Repository interface {
	// Path returns the repository directory the backend operates on.
	Path() string

	// Sync performs a prune-all-remotes synchronization and returns the
	// per-ref report text the backend printed (git writes it to stderr).
	// A non-zero exit surfaces as an error wrapping the process failure;
	// in that case doublegit has modified no local state of its own.
	Sync(ctx context.Context) (string, error)

	// ResolveRef resolves a ref name to its commit hash.
	ResolveRef(ctx context.Context, ref string) (string, error)

	// ForceBranch creates branch name at sha, moving it if it already
	// exists. Calling it twice with the same arguments is a no-op.
	ForceBranch(ctx context.Context, name, sha string) error

	// MergedBranches returns the local branches whose tips are ancestors
	// of (or equal to) target. This is the ancestry-reachability oracle;
	// doublegit treats it as authoritative and performs no graph
	// traversal of its own.
	MergedBranches(ctx context.Context, target string) ([]string, error)

	// DeleteBranch deletes the named local branch.
	DeleteBranch(ctx context.Context, name string) error

	// ListBranches returns all local branch names. Used by audits.
	ListBranches(ctx context.Context) ([]string, error)

	// BranchesContaining returns the local branches whose ancestry
	// includes sha. The inverse direction of MergedBranches; used by
	// audits to prove a recorded commit is still anchored.
	BranchesContaining(ctx context.Context, sha string) ([]string, error)
}
