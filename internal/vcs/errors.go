package vcs

import "errors"

// Common errors returned by repository operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, vcs.ErrNotARepository) {
//	    // the path does not hold the expected repository structure
//	}
var (
	// ErrNotARepository is returned when the target path lacks the
	// structure of a (bare) repository. Fatal at startup, before any I/O.
	ErrNotARepository = errors.New("not a git repository")

	// ErrVCSNotAvailable is returned when the git binary is not
	// installed or not in PATH.
	ErrVCSNotAvailable = errors.New("git binary not available")

	// ErrRefNotFound is returned when a ref cannot be resolved to a
	// commit hash.
	ErrRefNotFound = errors.New("reference not found")
)
