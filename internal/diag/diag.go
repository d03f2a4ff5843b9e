// Package diag collects the pretty-printing helpers spec.md §7 ties to
// specific libraries: struct dumps for the test harness (not the
// compiler itself), byte-size and timestamp formatting for durability-
// layer diagnostics. None of this is on the compile-time error path —
// internal/errors keeps its own minimal isatty/caret rendering for
// CompileError, which is a different shape of output entirely.
package diag

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/kr/text"
	"github.com/ncruces/go-strftime"
)

// Dump renders v as an indented struct dump, the same kr/pretty style
// the corpus's test harnesses use for debug output and failure
// messages.
func Dump(v any) string {
	return pretty.Sprint(v)
}

// IndentDump is Dump with every line additionally indented by prefix,
// for nesting a struct dump inside a larger diagnostic block.
func IndentDump(v any, prefix string) string {
	return text.Indent(Dump(v), prefix)
}

// ByteSize renders n bytes in human-readable form, used wherever a
// durability artifact's "size reported as the serialised length"
// (§4.13) needs to show up in a log line or diagnostic.
func ByteSize(n uint64) string {
	return humanize.Bytes(n)
}

// Timestamp renders a stored unix-second timestamp (kept as an int64
// on the wire, per §3) in POSIX strftime form for human-readable
// log/snapshot diagnostics.
func Timestamp(unixSeconds int64, layout string) string {
	return strftime.Format(layout, time.Unix(unixSeconds, 0).UTC())
}
