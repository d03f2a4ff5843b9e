// Package cli implements the thin driver SPEC_FULL.md's line 39 names:
// extractor → lexer → parser → resolver → typecheck → lower → vm,
// behind two subcommands. It is kept separate from cmd/lumen so the
// same entry point can be exercised both by the real binary and by the
// testscript golden tests in internal/testscript_test, which cannot
// import a package main.
package cli

import (
	"fmt"
	"os"
	"strings"

	"lumen/internal/effects"
	"lumen/internal/errors"
	"lumen/internal/jit"
	"lumen/internal/lexer"
	"lumen/internal/lir"
	"lumen/internal/lower"
	"lumen/internal/markdown"
	"lumen/internal/parser"
	"lumen/internal/resolver"
	"lumen/internal/types"
	"lumen/internal/vm"
)

const Version = "0.1.0"

var commandAliases = map[string]string{
	"r": "run",
	"c": "check",
}

// Main runs one cli invocation and returns the process exit code.
func Main(args []string) int {
	if len(args) == 0 {
		showUsage()
		return 1
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
		return 0
	case "--version", "-v", "version":
		fmt.Println("lumen " + Version)
		return 0
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "lumen run: missing source file")
			return 1
		}
		return runFile(args[1])
	case "check":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "lumen check: missing source file")
			return 1
		}
		return checkFile(args[1])
	default:
		fmt.Fprintf(os.Stderr, "lumen: unknown command %q (try \"lumen help\")\n", args[0])
		return 1
	}
}

func showUsage() {
	fmt.Println(`lumen - compile and run Lumen programs embedded in Markdown

Usage:
  lumen run <file.md>    extract, compile, and execute the document's entry cell
  lumen check <file.md>  typecheck the document without running it
  lumen version          print the toolchain version

Aliases: r=run, c=check`)
}

// extractSource concatenates every eligible `lumen`/`lm` fenced block in a
// Markdown document into one compilation unit, skipping blocks fenced
// with a "skip" directive. Block boundaries are joined with a newline so
// per-block line numbers stay close to their source position even
// though the lexer sees one flattened blob (spec.md §4.1's extractor
// itself is per-block; stitching blocks together here is the driver's
// own simplification, not something the extractor does).
func extractSource(source string) string {
	res := markdown.Extract(source)
	var sb strings.Builder
	for _, block := range res.CodeBlocks {
		if block.Language != "lumen" && block.Language != "lm" {
			continue
		}
		if block.FenceDirective == "skip" {
			continue
		}
		sb.WriteString(block.Source)
		sb.WriteString("\n")
	}
	return sb.String()
}

// compile runs every front-end pass through lowering, stopping at the
// first pass that reports an error, per spec.md §4.14's one-CompileError-
// per-run contract.
func compile(unit string) (*lir.Module, *errors.CompileError) {
	toks, err := lexer.New(unit, 1, 0).Lex()
	if err != nil {
		return nil, errors.NewLex(err)
	}

	prog, perrs := parser.Parse(toks)
	if ce := errors.NewParse(perrs); ce != nil {
		return nil, ce
	}

	syms, rerrs := resolver.Resolve(prog)
	if ce := errors.NewResolve(rerrs); ce != nil {
		return nil, ce
	}

	if terrs := types.Check(prog, syms); len(terrs) > 0 {
		return nil, errors.NewType(terrs)
	}

	mod, lerrs := lower.Module(prog, syms, unit)
	if len(lerrs) > 0 {
		return nil, errors.NewLower(lerrs[0])
	}
	return mod, nil
}

func runFile(file string) int {
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
		return 1
	}
	unit := extractSource(string(source))
	mod, ce := compile(unit)
	if ce != nil {
		fmt.Fprint(os.Stderr, errors.FormatError(ce, file, unit, os.Stderr))
		return 1
	}

	if mod.EntryIdx < 0 {
		fmt.Fprintf(os.Stderr, "%s: no entry cell (expected `cell main() -> ...`)\n", file)
		return 1
	}
	entry := mod.Cells[mod.EntryIdx]

	machine := vm.New(mod)
	registry := effects.NewRegistry(effects.CatchAndReturn)
	machine.Tools = registry.AsToolDispatcher()
	machine.Profiler = jit.NewEngine().AsVMProfiler()

	result, err := machine.Run(entry.Name, make([]vm.Value, entry.Arity))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: runtime error: %v\n", file, err)
		return 1
	}
	fmt.Println(result)
	return 0
}

func checkFile(file string) int {
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
		return 1
	}
	unit := extractSource(string(source))
	_, ce := compile(unit)
	if ce != nil {
		fmt.Fprint(os.Stderr, errors.FormatError(ce, file, unit, os.Stderr))
		return 1
	}
	fmt.Printf("%s: ok\n", file)
	return 0
}
