// Package fetch classifies the per-ref report git prints during a
// prune-all-remotes fetch.
//
// A report line looks like:
//
//	 * [new branch]      master     -> origin/master
//	   673b728..466e90b  devel      -> origin/devel
//	 - [deleted]         (none)     -> origin/old
//
// One marker character names the operation, a variable-width summary
// field (bare range or bracketed text) follows, then the source ref, an
// arrow, the tracking ref, and an optional trailing reason. Everything
// doublegit records downstream is keyed by the tracking ref.
package fetch

import (
	"fmt"
	"log"
	"strings"
)

// Op identifies what git did to one ref during a fetch.
type Op byte

const (
	OpFastForward Op = ' '
	OpForced      Op = '+'
	OpPruned      Op = '-'
	OpTag         Op = 't'
	OpNew         Op = '*'
	OpRejected    Op = '!'
	OpNoOp        Op = '='
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpFastForward:
		return "fast-forward"
	case OpForced:
		return "forced-update"
	case OpPruned:
		return "pruned"
	case OpTag:
		return "tag"
	case OpNew:
		return "new"
	case OpRejected:
		return "rejected"
	case OpNoOp:
		return "no-op"
	default:
		return fmt.Sprintf("unknown(%q)", byte(op))
	}
}

// RefEvent is one parsed report line.
type RefEvent struct {
	// Op is the operation git reported.
	Op Op

	// Local is the fully qualified tracking name, e.g. "origin/main".
	Local string
}

// Changes groups the tracking names of a fetch by what happened to them.
// The slices are disjoint and preserve report order.
type Changes struct {
	// New holds refs seen for the first time.
	New []string

	// Changed holds refs that moved, fast-forward and forced alike.
	Changed []string

	// Removed holds refs pruned because they vanished upstream.
	Removed []string

	// Tags holds tag updates. Observational only; tags never enter the
	// ledger reconciliation sets.
	Tags []string
}

// Empty reports whether the fetch moved nothing.
func (c *Changes) Empty() bool {
	return len(c.New) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

// RejectedError is returned when the report contains a rejected ref
// update. It aborts the whole parse: a cycle must never commit a ledger
// view built from a partially applied fetch.
type RejectedError struct {
	// Ref is the tracking name of the rejected update.
	Ref string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ref update rejected by remote: %s", e.Ref)
}

// Parse classifies a fetch report into Changes. Lines that do not match
// the report grammar (progress counters, "Fetching origin" headers,
// remote chatter) are logged and skipped. A rejected line fails the
// whole parse with *RejectedError.
//
// If logger is nil, lines are not logged.
func Parse(output string, logger *log.Logger) (*Changes, error) {
	changes := &Changes{}

	for _, line := range strings.Split(output, "\n") {
		ev, ok := parseLine(line)
		if !ok {
			if logger != nil && line != "" {
				logger.Printf("! %s", line)
			}
			continue
		}
		if logger != nil {
			logger.Printf("> %s", line)
		}

		switch ev.Op {
		case OpNew:
			changes.New = append(changes.New, ev.Local)
		case OpFastForward, OpForced:
			changes.Changed = append(changes.Changed, ev.Local)
		case OpPruned:
			changes.Removed = append(changes.Removed, ev.Local)
		case OpTag:
			changes.Tags = append(changes.Tags, ev.Local)
		case OpRejected:
			return nil, &RejectedError{Ref: ev.Local}
		case OpNoOp:
			// Up to date, nothing to record.
		}
	}

	return changes, nil
}

// parseLine matches one report line. The grammar, field by field:
//
//	" "  marker  " "+  summary  " "+  from  " "+  "->"  " "+  to  [" "+ reason]
//
// where summary is either a bare token or "[...]" which may itself
// contain spaces.
func parseLine(line string) (RefEvent, bool) {
	if len(line) < 2 || line[0] != ' ' {
		return RefEvent{}, false
	}

	op := Op(line[1])
	switch op {
	case OpFastForward, OpForced, OpPruned, OpTag, OpNew, OpRejected, OpNoOp:
	default:
		return RefEvent{}, false
	}
	if len(line) < 3 || line[2] != ' ' {
		return RefEvent{}, false
	}

	rest := line[3:]

	// Summary field: bracketed summaries swallow spaces up to the
	// closing bracket, bare summaries end at the next space.
	rest = strings.TrimLeft(rest, " ")
	var summary string
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return RefEvent{}, false
		}
		summary = rest[1:end]
		rest = rest[end+1:]
	} else {
		end := strings.IndexByte(rest, ' ')
		if end <= 0 {
			return RefEvent{}, false
		}
		rest = rest[end:]
	}

	fields := strings.Fields(rest)
	if len(fields) < 3 || fields[1] != "->" {
		return RefEvent{}, false
	}

	// New tags arrive under the new-ref marker; the summary text is
	// what tells them apart from new branches. Their destination is a
	// bare tag name, which must never enter the branch ledger.
	if op == OpNew && summary == "new tag" {
		op = OpTag
	}

	// fields[0] is the source ref, fields[2] the tracking name; any
	// further fields are the optional reason.
	return RefEvent{Op: op, Local: fields[2]}, true
}
