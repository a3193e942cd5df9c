package fetch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleTranscript = `Fetching origin
remote: Enumerating objects: 14, done.
remote: Counting objects: 100% (14/14), done.
remote: Compressing objects: 100% (11/11), done.
remote: Total 14 (delta 3), reused 12 (delta 1), pack-reused 0
Unpacking objects: 100% (14/14), done.
From github.com:remram44/doublegit
 * [new branch]      master     -> origin/master
   673b728..466e90b  devel      -> origin/devel
 - [deleted]         (none)     -> origin/old
`

// TestParse_Transcript checks the classification of a realistic fetch
// report: one new branch, one fast-forward, one prune, surrounded by
// chatter that must be ignored.
func TestParse_Transcript(t *testing.T) {
	changes, err := Parse(sampleTranscript, nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if diff := cmp.Diff([]string{"origin/master"}, changes.New); diff != "" {
		t.Errorf("New mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"origin/devel"}, changes.Changed); diff != "" {
		t.Errorf("Changed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"origin/old"}, changes.Removed); diff != "" {
		t.Errorf("Removed mismatch (-want +got):\n%s", diff)
	}
	if len(changes.Tags) != 0 {
		t.Errorf("Tags = %v, want none", changes.Tags)
	}
}

// TestParse_ForcedUpdate checks that forced updates land in Changed
// alongside fast-forwards, reason column and all.
func TestParse_ForcedUpdate(t *testing.T) {
	output := " + 673b728...466e90b devel      -> origin/devel  (forced update)\n"

	changes, err := Parse(output, nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"origin/devel"}, changes.Changed); diff != "" {
		t.Errorf("Changed mismatch (-want +got):\n%s", diff)
	}
}

// TestParse_TagsObservational checks that tag events are recognized
// but kept out of the reconciliation sets.
func TestParse_TagsObservational(t *testing.T) {
	output := " t [tag update]      v1.0       -> v1.0\n" +
		" * [new tag]         v2.0       -> v2.0\n"

	changes, err := Parse(output, nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	// "* [new tag]" carries the new-ref marker but must land with the
	// tags: its destination is a bare tag name, and a bare name in the
	// New set would fail the whole cycle at ledger time.
	if diff := cmp.Diff([]string{"v1.0", "v2.0"}, changes.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if len(changes.New) != 0 {
		t.Errorf("New = %v, want empty", changes.New)
	}
}

// TestParse_Rejected checks that a rejected ref fails the whole parse
// and identifies the ref.
func TestParse_Rejected(t *testing.T) {
	output := " * [new branch]      master     -> origin/master\n" +
		" ! [rejected]        devel      -> origin/devel  (non-fast-forward)\n"

	_, err := Parse(output, nil)
	if err == nil {
		t.Fatal("Parse() succeeded, want rejection error")
	}

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want *RejectedError", err)
	}
	if rejected.Ref != "origin/devel" {
		t.Errorf("rejected ref = %q, want %q", rejected.Ref, "origin/devel")
	}
}

// TestParse_NoOpIgnored checks that up-to-date markers produce nothing.
func TestParse_NoOpIgnored(t *testing.T) {
	output := " = [up to date]      master     -> origin/master\n"

	changes, err := Parse(output, nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !changes.Empty() || len(changes.Tags) != 0 {
		t.Errorf("changes = %+v, want empty", changes)
	}
}

// TestParse_Empty checks that a quiet fetch yields empty Changes.
func TestParse_Empty(t *testing.T) {
	changes, err := Parse("", nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !changes.Empty() {
		t.Errorf("changes = %+v, want empty", changes)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   RefEvent
		wantOK bool
	}{
		{
			name:   "new branch",
			line:   " * [new branch]      master     -> origin/master",
			want:   RefEvent{Op: OpNew, Local: "origin/master"},
			wantOK: true,
		},
		{
			name:   "fast forward range",
			line:   "   673b728..466e90b  devel      -> origin/devel",
			want:   RefEvent{Op: OpFastForward, Local: "origin/devel"},
			wantOK: true,
		},
		{
			name:   "new tag reclassified",
			line:   " * [new tag]         v1.0       -> v1.0",
			want:   RefEvent{Op: OpTag, Local: "v1.0"},
			wantOK: true,
		},
		{
			name:   "pruned",
			line:   " - [deleted]         (none)     -> origin/old",
			want:   RefEvent{Op: OpPruned, Local: "origin/old"},
			wantOK: true,
		},
		{
			name:   "forced with reason",
			line:   " + 673b728...466e90b devel -> origin/devel  (forced update)",
			want:   RefEvent{Op: OpForced, Local: "origin/devel"},
			wantOK: true,
		},
		{
			name:   "unterminated bracket",
			line:   " * [new branch      master     -> origin/master",
			wantOK: false,
		},
		{
			name:   "missing arrow",
			line:   " * [new branch]      master origin/master",
			wantOK: false,
		},
		{
			name:   "remote chatter",
			line:   "remote: Counting objects: 100% (14/14), done.",
			wantOK: false,
		},
		{
			name:   "unknown marker",
			line:   " x [something]       a -> b",
			wantOK: false,
		},
		{
			name:   "empty",
			line:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestOpString(t *testing.T) {
	ops := map[Op]string{
		OpFastForward: "fast-forward",
		OpForced:      "forced-update",
		OpPruned:      "pruned",
		OpTag:         "tag",
		OpNew:         "new",
		OpRejected:    "rejected",
		OpNoOp:        "no-op",
	}
	for op, want := range ops {
		if got := op.String(); got != want {
			t.Errorf("Op(%q).String() = %q, want %q", byte(op), got, want)
		}
	}
}
