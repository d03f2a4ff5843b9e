package diag

import (
	"strings"
	"testing"
)

func TestDumpRendersFieldNames(t *testing.T) {
	type point struct{ X, Y int }
	out := Dump(point{X: 1, Y: 2})
	if !strings.Contains(out, "X:") || !strings.Contains(out, "Y:") {
		t.Fatalf("expected field names in dump, got %q", out)
	}
}

func TestIndentDumpIndentsEveryLine(t *testing.T) {
	type pair struct{ A, B string }
	out := IndentDump(pair{A: "one\ntwo", B: "three"}, "  ")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "  ") {
			t.Fatalf("expected every line indented, got %q", line)
		}
	}
}

func TestByteSizeIsHumanReadable(t *testing.T) {
	got := ByteSize(1024)
	if !strings.Contains(got, "1.0") || !strings.Contains(got, "kB") {
		t.Fatalf("got %q", got)
	}
}

func TestTimestampFormatsKnownEpoch(t *testing.T) {
	got := Timestamp(0, "%Y-%m-%d")
	if got != "1970-01-01" {
		t.Fatalf("got %q", got)
	}
}
