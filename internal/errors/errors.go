// Package errors implements the compile-time error taxonomy of
// spec.md §4.14/§7: a compile run produces zero or one CompileError,
// independent front-end passes accumulate their own error lists rather
// than stopping at the first failure, and format_error renders every
// contained diagnostic with a source snippet and caret underline —
// adapted from the teacher's SentraError (single error, single
// location, optional call stack) into a taxonomy that holds a whole
// pass's worth of diagnostics at once.
package errors

import (
	"fmt"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/mattn/go-isatty"

	"lumen/internal/lexer"
	"lumen/internal/parser"
	"lumen/internal/resolver"
	"lumen/internal/span"
	"lumen/internal/types"
)

// Kind discriminates which pass (or combination of passes) a
// CompileError reports on.
type Kind int

const (
	KindLex Kind = iota
	KindParse
	KindResolve
	KindType
	KindConstraint
	KindOwnership
	KindLower
	KindMultiple
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "Lex"
	case KindParse:
		return "Parse"
	case KindResolve:
		return "Resolve"
	case KindType:
		return "Type"
	case KindConstraint:
		return "Constraint"
	case KindOwnership:
		return "Ownership"
	case KindLower:
		return "Lower"
	case KindMultiple:
		return "Multiple"
	default:
		return "Unknown"
	}
}

// CompileError is the single value a compile run produces, per §4.14.
// Lex and Lower wrap exactly one underlying error (the lexer stops at its
// first failure; for Lower, the first lowering error is wrapped); Parse, Resolve, Type, Constraint, and Ownership
// each wrap the full list of independent diagnostics their pass
// collected; Multiple wraps other CompileErrors, already flattened by
// FromMultiple so a Multiple never directly contains another Multiple.
type CompileError struct {
	Kind   Kind
	Single error
	List   []error
	Multi  []*CompileError
}

func (e *CompileError) Error() string {
	switch e.Kind {
	case KindLex, KindLower:
		return fmt.Sprintf("%s: %v", e.Kind, e.Single)
	case KindMultiple:
		parts := make([]string, len(e.Multi))
		for i, c := range e.Multi {
			parts[i] = c.Error()
		}
		return strings.Join(parts, "; ")
	default:
		parts := make([]string, len(e.List))
		for i, err := range e.List {
			parts[i] = err.Error()
		}
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(parts, "; "))
	}
}

// Wrap augments err with infrastructure-level context (e.g. "while
// compiling module X") using github.com/pkg/errors, the way a
// teacher-style Go service chains causes without widening the closed
// CompileError taxonomy itself — Wrap never changes e.Kind or the
// diagnostics format_error renders, only what Cause()/errors.Unwrap see.
func Wrap(err error, context string) error {
	return pkgerrors.Wrap(err, context)
}

// Cause unwraps a Wrap chain back to its root error.
func Cause(err error) error { return pkgerrors.Cause(err) }

func NewLex(err error) *CompileError      { return &CompileError{Kind: KindLex, Single: err} }
func NewLower(err error) *CompileError    { return &CompileError{Kind: KindLower, Single: err} }
func NewParse(errs []error) *CompileError { return newList(KindParse, errs) }
func NewResolve(errs []error) *CompileError { return newList(KindResolve, errs) }
func NewType(errs []error) *CompileError  { return newList(KindType, errs) }
func NewConstraint(errs []error) *CompileError { return newList(KindConstraint, errs) }
func NewOwnership(errs []error) *CompileError { return newList(KindOwnership, errs) }

func newList(kind Kind, errs []error) *CompileError {
	if len(errs) == 0 {
		return nil
	}
	return &CompileError{Kind: kind, List: errs}
}

// FromMultiple implements spec.md §4.14c: nil on no input, the single
// element unwrapped (never re-wrapped in Multiple) when exactly one
// survives, and any nested Multiple flattened into its parent rather
// than nested — so a Multiple's own Multi slice never itself contains
// a KindMultiple entry.
func FromMultiple(items []*CompileError) *CompileError {
	var flat []*CompileError
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Kind == KindMultiple {
			flat = append(flat, it.Multi...)
			continue
		}
		flat = append(flat, it)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &CompileError{Kind: KindMultiple, Multi: flat}
	}
}

// diagnostic is one positional error ready for caret rendering.
type diagnostic struct {
	span span.Span
	msg  string
}

// spanOf extracts a source position from a pass error when that pass's
// Error type carries one; lowering and constraint-lowering errors carry
// no span (they are defensive backstops over an already-resolved,
// already-typed program), so they render without a source snippet.
func spanOf(err error) span.Span {
	switch e := err.(type) {
	case *lexer.Error:
		return e.Span
	case *parser.Error:
		return e.Span
	case *resolver.Error:
		return e.Span
	case *types.Error:
		return e.Span
	default:
		return span.Dummy()
	}
}

// diagnostics flattens a CompileError (at any nesting) into one
// diagnostic per contained pass error, depth-first in the order passes
// ran.
func diagnostics(ce *CompileError) []diagnostic {
	if ce == nil {
		return nil
	}
	var out []diagnostic
	switch ce.Kind {
	case KindLex, KindLower:
		out = append(out, diagnostic{span: spanOf(ce.Single), msg: ce.Single.Error()})
	case KindMultiple:
		for _, c := range ce.Multi {
			out = append(out, diagnostics(c)...)
		}
	default:
		for _, err := range ce.List {
			out = append(out, diagnostic{span: spanOf(err), msg: err.Error()})
		}
	}
	return out
}

// FormatError renders every diagnostic ce contains as "file:line:col:
// message" followed by a source snippet and caret underline when source
// and a real span are available — spec.md §4.14d. The caret is wrapped
// in ANSI colour codes only when out looks like a real terminal
// (github.com/mattn/go-isatty), matching the teacher corpus's
// isatty-gated pretty-printing.
func FormatError(ce *CompileError, file, source string, out *os.File) string {
	if ce == nil {
		return ""
	}
	colorize := out != nil && isatty.IsTerminal(out.Fd())
	lines := strings.Split(source, "\n")

	var sb strings.Builder
	for _, d := range diagnostics(ce) {
		if d.span.IsDummy() {
			fmt.Fprintf(&sb, "%s: %s\n", file, d.msg)
			continue
		}
		fmt.Fprintf(&sb, "%s:%d:%d: %s\n", file, d.span.Line, d.span.Col, d.msg)
		if d.span.Line-1 >= 0 && d.span.Line-1 < len(lines) {
			srcLine := lines[d.span.Line-1]
			fmt.Fprintf(&sb, "  %d | %s\n", d.span.Line, srcLine)
			pad := strings.Repeat(" ", len(fmt.Sprintf("%d | ", d.span.Line)))
			caretPad := ""
			if d.span.Col > 0 {
				caretPad = strings.Repeat(" ", d.span.Col-1)
			}
			caret := "^"
			if colorize {
				caret = "\033[1;31m^\033[0m"
			}
			sb.WriteString("  " + pad + caretPad + caret + "\n")
		}
	}
	return sb.String()
}
