package mirror

import "fmt"

// ResolutionError reports a ref that the fetch claimed is present but
// that could not be resolved to a commit hash. That means the remote
// moved between the fetch and the resolve; the cycle fails rather than
// record a ledger entry it cannot vouch for.
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// AnchorError reports a failed anchor creation. Always fatal: anchors
// are the only protection recorded history has against the garbage
// collector, so a cycle must not commit with one missing.
type AnchorError struct {
	SHA string
	Err error
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor %s: %v", e.SHA, e.Err)
}

func (e *AnchorError) Unwrap() error { return e.Err }
