// Package git provides the git implementation of the vcs.Repository
// interface for bare mirror repositories.
//
// Every operation shells out to the git binary; nothing reads the object
// store directly. The fetch report doublegit parses is whatever git
// prints to stderr during "git fetch --prune --all".
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/SilentByte/doublegit/internal/vcs"
)

var _ vcs.Repository = (*Repository)(nil)

// DefaultTimeout bounds non-network git invocations. Fetches get their
// own, longer timeout via Options.
const DefaultTimeout = 30 * time.Second

// DefaultFetchTimeout bounds the fetch call, which may transfer a lot
// of data on cold mirrors.
const DefaultFetchTimeout = 15 * time.Minute

// Options configures a Repository.
type Options struct {
	// FetchTimeout overrides DefaultFetchTimeout when positive.
	FetchTimeout time.Duration
}

// Repository implements vcs.Repository against a bare git repository.
type Repository struct {
	path         string
	fetchTimeout time.Duration
}

// Open validates that path holds a git repository and returns a
// Repository for it. Both bare repositories (refs/ and objects/ at the
// top level) and regular checkouts (a .git directory) are accepted.
func Open(path string, opts Options) (*Repository, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, vcs.ErrVCSNotAvailable
	}

	if !looksLikeRepository(path) {
		return nil, fmt.Errorf("%s: %w", path, vcs.ErrNotARepository)
	}

	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	return &Repository{
		path:         path,
		fetchTimeout: fetchTimeout,
	}, nil
}

// looksLikeRepository checks for repository structure without invoking
// git, so a bad path fails fast before any process I/O.
func looksLikeRepository(path string) bool {
	if dirExists(filepath.Join(path, "refs")) && dirExists(filepath.Join(path, "objects")) {
		return true
	}
	return dirExists(filepath.Join(path, ".git"))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Path returns the repository directory.
func (r *Repository) Path() string {
	return r.path
}

// Version returns the git binary version string.
func (r *Repository) Version(ctx context.Context) (string, error) {
	out, err := vcs.ExecContext(ctx, DefaultTimeout, r.path, "git", "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "git version "), nil
}
