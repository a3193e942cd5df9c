package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Sync runs "git fetch --prune --all" and returns the captured stderr,
// which carries git's per-ref report lines. Stdout is discarded; git
// writes nothing useful there during a fetch.
//
// On a non-zero exit the stderr text is folded into the returned error
// so the operator sees git's own diagnostics.
func (r *Repository) Sync(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "fetch", "--prune", "--all")
	cmd.Dir = r.path

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git fetch --prune --all: %w: %s", err, stderr.String())
	}

	return stderr.String(), nil
}
